// Package models defines the payment gateway's webhook event shapes and the
// reconciliation outcomes derived from them.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds the reconciler understands. Anything else is acknowledged and
// ignored so the gateway never retries event types we don't handle.
const (
	EventCheckoutCompleted = "checkout.session.completed"
)

// Checkout session modes carried in the event payload.
const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// Event is the envelope the payment gateway delivers.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// CheckoutSession is the payload object of a checkout.session.completed event.
type CheckoutSession struct {
	ID             string `json:"id"`
	Mode           string `json:"mode"`
	SubscriptionID string `json:"subscription"`
	CustomerEmail  string `json:"customer_email"`
}

type eventData struct {
	Object json.RawMessage `json:"object"`
}

// ParseEvent decodes the envelope and validates the fields dedup depends on.
func ParseEvent(body []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.ID == "" {
		return Event{}, fmt.Errorf("event id is required")
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("event type is required")
	}
	return evt, nil
}

// CheckoutSession extracts the session object from the event payload.
func (e Event) CheckoutSession() (CheckoutSession, error) {
	var data eventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return CheckoutSession{}, fmt.Errorf("decode event data: %w", err)
	}
	var session CheckoutSession
	if err := json.Unmarshal(data.Object, &session); err != nil {
		return CheckoutSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	return session, nil
}

// ProcessedEventMarker is the dedup record: one row per gateway event id,
// inserted before any state change is applied.
type ProcessedEventMarker struct {
	EventID    string
	Type       string
	ReceivedAt time.Time
}

// Outcome classifies one webhook delivery after reconciliation.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeAlreadyProcessed  Outcome = "already_processed"
	OutcomeInvalidSignature  Outcome = "invalid_signature"
	OutcomeReferenceNotFound Outcome = "reference_not_found"
	OutcomeIgnored           Outcome = "ignored"
)
