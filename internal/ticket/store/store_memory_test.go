package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubgate/internal/ticket/models"
	id "clubgate/pkg/domain"
	"clubgate/pkg/platform/sentinel"
)

func seedTicket(t *testing.T, s *InMemoryStore) models.Ticket {
	t.Helper()
	ticket := models.Ticket{
		ID:        id.NewTicketID(),
		EventID:   "match-1",
		TierID:    "ga",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Insert(context.Background(), ticket))
	return ticket
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := NewInMemoryStore()
	ticket := seedTicket(t, s)

	err := s.Insert(context.Background(), ticket)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestRedeemIfUnvalidatedSentinels(t *testing.T) {
	s := NewInMemoryStore()
	ticket := seedTicket(t, s)
	ctx := context.Background()
	at := time.Now().UTC()

	redeemed, err := s.RedeemIfUnvalidated(ctx, ticket.ID, at)
	require.NoError(t, err)
	assert.True(t, redeemed.Validated)
	require.NotNil(t, redeemed.ValidatedAt)
	assert.Equal(t, at, *redeemed.ValidatedAt)

	_, err = s.RedeemIfUnvalidated(ctx, ticket.ID, at.Add(time.Minute))
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

	_, err = s.RedeemIfUnvalidated(ctx, id.NewTicketID(), at)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// The losing attempt did not move the stamp.
	current, err := s.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, at, *current.ValidatedAt)
}

// TestRedeemIfUnvalidatedIsAtomic drives the store directly with many
// concurrent redeemers; exactly one may observe success.
func TestRedeemIfUnvalidatedIsAtomic(t *testing.T) {
	s := NewInMemoryStore()
	ticket := seedTicket(t, s)

	const attempts = 64
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = s.RedeemIfUnvalidated(context.Background(), ticket.ID, time.Now().UTC())
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
		}
	}
	assert.Equal(t, 1, wins)
}
