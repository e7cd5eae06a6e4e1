// Package store persists subscriptions. Implementations return
// pkg/platform/sentinel errors; services translate.
package store

import (
	"context"

	"clubgate/internal/subscription/models"
	id "clubgate/pkg/domain"
)

// Store is the subscription persistence contract.
type Store interface {
	// Insert creates a subscription. Duplicate gateway references return
	// sentinel.ErrConflict (the partial unique index backs this).
	Insert(ctx context.Context, sub models.Subscription) error

	// FindByID returns the subscription or sentinel.ErrNotFound.
	FindByID(ctx context.Context, subID id.SubscriptionID) (models.Subscription, error)

	// ActivateByGatewayRef idempotently marks the subscription referenced by
	// the gateway active. Returns the subscription and whether this call
	// performed the transition (false means it was already active).
	// sentinel.ErrNotFound if no record carries the ref.
	ActivateByGatewayRef(ctx context.Context, gatewayRef string) (models.Subscription, bool, error)

	// UpdateStatus persists a recomputed cached status. Best effort: the
	// evaluation result, not the cache, is authoritative.
	UpdateStatus(ctx context.Context, subID id.SubscriptionID, status models.Status) error
}
