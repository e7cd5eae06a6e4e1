// Package store persists tickets. Implementations return pkg/platform/sentinel
// errors; services translate them into domain errors or result variants.
package store

import (
	"context"
	"time"

	"clubgate/internal/ticket/models"
	id "clubgate/pkg/domain"
)

// Store is the ticket persistence contract.
//
// RedeemIfUnvalidated is the only mutation after issuance and must be a single
// conditional write: two concurrent calls for the same ticket see exactly one
// success. A read-then-write pair would reintroduce the double-redemption race.
type Store interface {
	// Insert creates an unvalidated ticket at issuance.
	Insert(ctx context.Context, ticket models.Ticket) error

	// FindByID returns the ticket or sentinel.ErrNotFound.
	FindByID(ctx context.Context, ticketID id.TicketID) (models.Ticket, error)

	// RedeemIfUnvalidated atomically transitions is_validated false -> true,
	// stamping validatedAt = at. Returns the redeemed ticket on success,
	// sentinel.ErrAlreadyUsed if another call won the transition, or
	// sentinel.ErrNotFound if the ticket does not exist.
	RedeemIfUnvalidated(ctx context.Context, ticketID id.TicketID, at time.Time) (models.Ticket, error)
}
