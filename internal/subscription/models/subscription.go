package models

import (
	"time"

	id "clubgate/pkg/domain"
)

// Status is the cached subscription state persisted alongside the record.
// It is derived, never independently mutated: Check recomputes it from the
// validity window, and gateway reconciliation moves pending to active.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// WindowStatus is the result of evaluating the validity window at an instant.
type WindowStatus string

const (
	WindowActive      WindowStatus = "active"
	WindowExpired     WindowStatus = "expired"
	WindowNotYetValid WindowStatus = "not_yet_valid"
)

// Subscription is a time-bounded entitlement. Both window bounds are
// inclusive; ValidFrom <= ValidTo is enforced at creation, never re-checked
// at evaluation.
type Subscription struct {
	ID                    id.SubscriptionID
	SubscriptionTypeID    string
	PurchaserName         string
	PurchaserEmail        string
	ValidFrom             time.Time
	ValidTo               time.Time
	GatewaySubscriptionID string
	Status                Status
}

// WindowAt evaluates the validity window at the given instant. Pure and
// total over well-formed records:
//
//	now < ValidFrom          -> WindowNotYetValid
//	now > ValidTo            -> WindowExpired
//	ValidFrom <= now <= ValidTo -> WindowActive
func (s Subscription) WindowAt(now time.Time) WindowStatus {
	if now.Before(s.ValidFrom) {
		return WindowNotYetValid
	}
	if now.After(s.ValidTo) {
		return WindowExpired
	}
	return WindowActive
}

// CachedStatus maps a window evaluation onto the persisted status value.
func (w WindowStatus) CachedStatus() Status {
	switch w {
	case WindowActive:
		return StatusActive
	case WindowExpired:
		return StatusExpired
	default:
		return StatusPending
	}
}
