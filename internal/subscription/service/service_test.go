package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubgate/internal/subscription/models"
	"clubgate/internal/subscription/store"
	id "clubgate/pkg/domain"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/requestcontext"
)

func newService(t *testing.T) (*Service, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	return New(st, slog.New(slog.DiscardHandler), nil), st
}

func createSubscription(t *testing.T, s *Service, from, to time.Time, gatewayRef string) models.Subscription {
	t.Helper()
	sub, err := s.Create(context.Background(), CreateInput{
		SubscriptionTypeID:    "season-2026",
		PurchaserName:         "Grace Hopper",
		PurchaserEmail:        "grace@example.com",
		ValidFrom:             from,
		ValidTo:               to,
		GatewaySubscriptionID: gatewayRef,
	})
	require.NoError(t, err)
	return sub
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	s, _ := newService(t)
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Create(context.Background(), CreateInput{
		SubscriptionTypeID: "season-2026",
		ValidFrom:          from,
		ValidTo:            from.AddDate(0, -1, 0),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreateRejectsDuplicateGatewayRef(t *testing.T) {
	s, _ := newService(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	createSubscription(t, s, from, from.AddDate(1, 0, 0), "sub_gw_1")

	_, err := s.Create(context.Background(), CreateInput{
		SubscriptionTypeID:    "season-2026",
		ValidFrom:             from,
		ValidTo:               from.AddDate(1, 0, 0),
		GatewaySubscriptionID: "sub_gw_1",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

// TestCheckWindowScenario: a January 2024 window is active mid-month and
// expired on February 1st.
func TestCheckWindowScenario(t *testing.T) {
	s, _ := newService(t)
	sub := createSubscription(t, s,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		"")

	at := func(t2 time.Time) context.Context {
		return requestcontext.WithTime(context.Background(), t2)
	}

	mid, err := s.Check(at(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WindowActive, mid.Window)
	assert.Equal(t, models.StatusActive, mid.Status)
	assert.Contains(t, mid.Message, "active until")

	after, err := s.Check(at(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WindowExpired, after.Window)
	assert.Equal(t, models.StatusExpired, after.Status)
	assert.Contains(t, after.Message, "expired on")
}

func TestCheckRefreshesCachedStatus(t *testing.T) {
	s, st := newService(t)
	sub := createSubscription(t, s,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		"")

	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	_, err := s.Check(ctx, sub.ID)
	require.NoError(t, err)

	persisted, err := st.FindByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, persisted.Status)
}

func TestCheckNotYetValidReportsPending(t *testing.T) {
	s, _ := newService(t)
	sub := createSubscription(t, s,
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC),
		"")

	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC))
	res, err := s.Check(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WindowNotYetValid, res.Window)
	assert.Equal(t, models.StatusPending, res.Status)
	assert.Contains(t, res.Message, "starts on")
}

func TestCheckUnknownSubscription(t *testing.T) {
	s, _ := newService(t)
	_, err := s.Check(context.Background(), id.NewSubscriptionID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestActivateByGatewayRefIsIdempotent(t *testing.T) {
	s, _ := newService(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sub := createSubscription(t, s, from, from.AddDate(1, 0, 0), "sub_gw_42")

	activated, changed, err := s.ActivateByGatewayRef(context.Background(), "sub_gw_42")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, sub.ID, activated.ID)
	assert.Equal(t, models.StatusActive, activated.Status)

	// Re-applying the same activation is a no-op, not an error.
	again, changed, err := s.ActivateByGatewayRef(context.Background(), "sub_gw_42")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StatusActive, again.Status)
}
