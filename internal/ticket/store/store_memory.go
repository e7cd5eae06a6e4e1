package store

import (
	"context"
	"sync"
	"time"

	"clubgate/internal/ticket/models"
	id "clubgate/pkg/domain"
	"clubgate/pkg/platform/sentinel"
)

// InMemoryStore keeps tickets in a map guarded by a mutex. The mutex gives the
// same compare-and-set semantics the postgres conditional UPDATE provides, so
// service tests exercise the real concurrency contract.
type InMemoryStore struct {
	mu      sync.RWMutex
	tickets map[id.TicketID]models.Ticket
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tickets: make(map[id.TicketID]models.Ticket)}
}

func (s *InMemoryStore) Insert(_ context.Context, ticket models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.ID]; exists {
		return sentinel.ErrConflict
	}
	s.tickets[ticket.ID] = ticket
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, ticketID id.TicketID) (models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, sentinel.ErrNotFound
	}
	return ticket, nil
}

func (s *InMemoryStore) RedeemIfUnvalidated(_ context.Context, ticketID id.TicketID, at time.Time) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return models.Ticket{}, sentinel.ErrNotFound
	}
	if ticket.Validated {
		return models.Ticket{}, sentinel.ErrAlreadyUsed
	}

	stamped := at
	ticket.Validated = true
	ticket.ValidatedAt = &stamped
	s.tickets[ticketID] = ticket
	return ticket, nil
}
