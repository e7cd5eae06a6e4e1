package models

import (
	"time"

	id "clubgate/pkg/domain"
)

// Ticket is a single-use access token for one event admission.
//
// Once Validated is true the record is append-only: no engine code path resets
// it. Administrative overrides happen outside this service.
type Ticket struct {
	ID             id.TicketID
	EventID        string
	TierID         string
	PurchaserName  string
	PurchaserEmail string
	Validated      bool
	ValidatedAt    *time.Time
	CreatedAt      time.Time
}

// RedemptionOutcome is the tri-state result of a scan. "already_used" and
// "not_found" are normal outcomes, not errors: the scanner operator needs to
// tell misuse apart from a scanning mistake.
type RedemptionOutcome string

const (
	OutcomeRedeemed    RedemptionOutcome = "redeemed"
	OutcomeAlreadyUsed RedemptionOutcome = "already_used"
	OutcomeNotFound    RedemptionOutcome = "not_found"
)

// RedemptionResult pairs the outcome with the ticket's current detail view.
// Ticket is nil only for OutcomeNotFound.
type RedemptionResult struct {
	Outcome RedemptionOutcome
	Ticket  *Ticket
}
