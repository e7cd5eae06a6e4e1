// Package store persists processed-event markers, the dedup ledger for
// webhook reconciliation.
package store

import (
	"context"

	"clubgate/internal/payments/models"
)

// MarkerStore is the dedup contract. InsertMarker is the atomic claim on an
// event id: the first caller wins, every later caller gets
// sentinel.ErrConflict.
type MarkerStore interface {
	InsertMarker(ctx context.Context, marker models.ProcessedEventMarker) error

	// HasMarker reports whether the event id was already claimed. Used for
	// health tooling and the cache warm path, not for the dedup decision
	// itself.
	HasMarker(ctx context.Context, eventID string) (bool, error)
}
