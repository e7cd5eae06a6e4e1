package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about persisted entitlements, not validation
// failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint hit (duplicate event marker, gateway ref)
// - ErrAlreadyUsed: single-use resource (ticket) already consumed
// - ErrUnavailable: store temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
