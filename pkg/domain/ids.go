// Package domain holds the typed identifiers shared across bounded contexts.
//
// Entity IDs are distinct UUID types so a ticket ID can never be passed where a
// subscription ID is expected. Gateway-issued identifiers (event IDs, session
// and subscription references) keep the gateway's opaque string format.
package domain

import (
	"github.com/google/uuid"

	dErrors "clubgate/pkg/domain-errors"
)

// TicketID identifies a single-use access token.
type TicketID uuid.UUID

// SubscriptionID identifies a time-bounded entitlement.
type SubscriptionID uuid.UUID

// NewTicketID mints a random ticket ID.
func NewTicketID() TicketID { return TicketID(uuid.New()) }

// NewSubscriptionID mints a random subscription ID.
func NewSubscriptionID() SubscriptionID { return SubscriptionID(uuid.New()) }

// ParseTicketID validates and parses a ticket ID at a trust boundary.
func ParseTicketID(raw string) (TicketID, error) {
	u, err := parseUUID(raw, "ticket id")
	return TicketID(u), err
}

// ParseSubscriptionID validates and parses a subscription ID at a trust boundary.
func ParseSubscriptionID(raw string) (SubscriptionID, error) {
	u, err := parseUUID(raw, "subscription id")
	return SubscriptionID(u), err
}

func (id TicketID) String() string { return uuid.UUID(id).String() }
func (id TicketID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SubscriptionID) String() string { return uuid.UUID(id).String() }
func (id SubscriptionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID rejects empty, malformed, and nil UUIDs. IDs arriving from the
// outside must be valid non-nil UUIDs before they reach a store.
func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, what+" must not be nil")
	}
	return u, nil
}
