package store

import (
	"context"
	"sync"

	"clubgate/internal/subscription/models"
	id "clubgate/pkg/domain"
	"clubgate/pkg/platform/sentinel"
)

// InMemoryStore keeps subscriptions in maps guarded by a mutex, mirroring the
// conditional-update semantics of the postgres implementation.
type InMemoryStore struct {
	mu            sync.RWMutex
	subscriptions map[id.SubscriptionID]models.Subscription
	byGatewayRef  map[string]id.SubscriptionID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		subscriptions: make(map[id.SubscriptionID]models.Subscription),
		byGatewayRef:  make(map[string]id.SubscriptionID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subscriptions[sub.ID]; exists {
		return sentinel.ErrConflict
	}
	if sub.GatewaySubscriptionID != "" {
		if _, exists := s.byGatewayRef[sub.GatewaySubscriptionID]; exists {
			return sentinel.ErrConflict
		}
		s.byGatewayRef[sub.GatewaySubscriptionID] = sub.ID
	}
	s.subscriptions[sub.ID] = sub
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, subID id.SubscriptionID) (models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[subID]
	if !ok {
		return models.Subscription{}, sentinel.ErrNotFound
	}
	return sub, nil
}

func (s *InMemoryStore) ActivateByGatewayRef(_ context.Context, gatewayRef string) (models.Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID, ok := s.byGatewayRef[gatewayRef]
	if !ok {
		return models.Subscription{}, false, sentinel.ErrNotFound
	}
	sub := s.subscriptions[subID]
	if sub.Status == models.StatusActive {
		return sub, false, nil
	}
	sub.Status = models.StatusActive
	s.subscriptions[subID] = sub
	return sub, true, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, subID id.SubscriptionID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subID]
	if !ok {
		return sentinel.ErrNotFound
	}
	sub.Status = status
	s.subscriptions[subID] = sub
	return nil
}
