// Package notification carries "entitlement activated/redeemed" facts to the
// outbound messaging collaborator. Dispatch is fire-and-forget: a failure here
// is logged and never rolls back the entitlement change that produced the fact.
package notification

import "time"

// Kind discriminates notification facts.
type Kind string

const (
	KindTicketRedeemed        Kind = "ticket_redeemed"
	KindSubscriptionActivated Kind = "subscription_activated"
)

// Fact is an immutable record of an entitlement state change.
type Fact struct {
	Kind       Kind      `json:"kind"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher accepts facts for asynchronous delivery.
type Dispatcher interface {
	Dispatch(fact Fact)
}

// Noop discards every fact. Used in tests that don't assert on notifications.
type Noop struct{}

func (Noop) Dispatch(Fact) {}
