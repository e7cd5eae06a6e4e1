package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"clubgate/internal/payments/models"
	"clubgate/pkg/platform/sentinel"
)

const (
	markerKeyPrefix = "clubgate:event:"
	markerTTL       = 72 * time.Hour
)

// CachedStore puts a Redis fast path in front of a MarkerStore. The database
// unique constraint stays authoritative: a cache hit short-circuits a known
// duplicate, a cache miss or Redis failure falls through to the inner store.
type CachedStore struct {
	inner  MarkerStore
	client redis.Cmdable
	logger *slog.Logger
}

func NewCachedStore(inner MarkerStore, client redis.Cmdable, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, logger: logger}
}

func (s *CachedStore) InsertMarker(ctx context.Context, marker models.ProcessedEventMarker) error {
	key := markerKeyPrefix + marker.EventID

	seen, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.WarnContext(ctx, "event cache lookup failed, falling through",
			"event_id", marker.EventID,
			"error", err.Error(),
		)
	} else if seen > 0 {
		return sentinel.ErrConflict
	}

	insertErr := s.inner.InsertMarker(ctx, marker)
	if insertErr != nil && !errors.Is(insertErr, sentinel.ErrConflict) {
		return insertErr
	}

	// Cache both outcomes: a fresh claim and a conflict mean the same thing
	// for every later delivery of this event id.
	if err := s.client.Set(ctx, key, "1", markerTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "event cache write failed",
			"event_id", marker.EventID,
			"error", err.Error(),
		)
	}
	return insertErr
}

func (s *CachedStore) HasMarker(ctx context.Context, eventID string) (bool, error) {
	seen, err := s.client.Exists(ctx, markerKeyPrefix+eventID).Result()
	if err == nil && seen > 0 {
		return true, nil
	}
	return s.inner.HasMarker(ctx, eventID)
}
