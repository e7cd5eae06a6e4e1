package store

import (
	"context"
	"sync"

	"clubgate/internal/payments/models"
	"clubgate/pkg/platform/sentinel"
)

// InMemoryStore keeps markers in a map guarded by a mutex.
type InMemoryStore struct {
	mu      sync.Mutex
	markers map[string]models.ProcessedEventMarker
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{markers: make(map[string]models.ProcessedEventMarker)}
}

func (s *InMemoryStore) InsertMarker(_ context.Context, marker models.ProcessedEventMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.markers[marker.EventID]; exists {
		return sentinel.ErrConflict
	}
	s.markers[marker.EventID] = marker
	return nil
}

func (s *InMemoryStore) HasMarker(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.markers[eventID]
	return exists, nil
}
