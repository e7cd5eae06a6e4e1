// Package service implements ticket issuance and the redemption guard.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/asaskevich/govalidator"

	"clubgate/internal/notification"
	"clubgate/internal/platform/metrics"
	"clubgate/internal/ticket/models"
	"clubgate/internal/ticket/store"
	id "clubgate/pkg/domain"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/platform/sentinel"
	"clubgate/pkg/requestcontext"
)

// Service enforces at-most-once redemption and owns the ticket write paths.
// It holds no entitlement state: all mutual exclusion lives in the store's
// conditional write.
type Service struct {
	store      store.Store
	dispatcher notification.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(st store.Store, dispatcher notification.Dispatcher, logger *slog.Logger, m *metrics.Metrics) *Service {
	if dispatcher == nil {
		dispatcher = notification.Noop{}
	}
	return &Service{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

// IssueInput carries purchaser-facing fields for a new ticket.
type IssueInput struct {
	EventID        string
	TierID         string
	PurchaserName  string
	PurchaserEmail string
}

// Issue creates an unvalidated ticket. Plain create, no state machine: the
// interesting transition happens at redemption.
func (s *Service) Issue(ctx context.Context, in IssueInput) (models.Ticket, error) {
	in.EventID = strings.TrimSpace(in.EventID)
	in.TierID = strings.TrimSpace(in.TierID)
	if in.EventID == "" {
		return models.Ticket{}, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	if in.TierID == "" {
		return models.Ticket{}, dErrors.New(dErrors.CodeValidation, "tier id is required")
	}
	if in.PurchaserEmail != "" && !govalidator.IsEmail(in.PurchaserEmail) {
		return models.Ticket{}, dErrors.New(dErrors.CodeValidation, "invalid purchaser email")
	}

	ticket := models.Ticket{
		ID:             id.NewTicketID(),
		EventID:        in.EventID,
		TierID:         in.TierID,
		PurchaserName:  strings.TrimSpace(in.PurchaserName),
		PurchaserEmail: in.PurchaserEmail,
		CreatedAt:      requestcontext.Now(ctx),
	}

	if err := s.store.Insert(ctx, ticket); err != nil {
		return models.Ticket{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to issue ticket")
	}

	if s.metrics != nil {
		s.metrics.TicketsIssued.Inc()
	}
	return ticket, nil
}

// Get returns the ticket detail view.
func (s *Service) Get(ctx context.Context, ticketID id.TicketID) (models.Ticket, error) {
	ticket, err := s.store.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Ticket{}, dErrors.New(dErrors.CodeNotFound, "ticket not found")
		}
		return models.Ticket{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return ticket, nil
}

// Redeem transitions the ticket from unused to used exactly once.
//
// The three outcomes are all normal results: Redeemed means this call won the
// transition, AlreadyUsed means an earlier call did (validatedAt is the
// original stamp), NotFound means no such ticket. Only infrastructure
// failures return an error.
func (s *Service) Redeem(ctx context.Context, ticketID id.TicketID) (models.RedemptionResult, error) {
	now := requestcontext.Now(ctx)

	ticket, err := s.store.RedeemIfUnvalidated(ctx, ticketID, now)
	switch {
	case err == nil:
		s.observe(models.OutcomeRedeemed)
		s.dispatcher.Dispatch(notification.Fact{
			Kind:       notification.KindTicketRedeemed,
			EntityID:   ticket.ID.String(),
			OccurredAt: now,
		})
		return models.RedemptionResult{Outcome: models.OutcomeRedeemed, Ticket: &ticket}, nil

	case errors.Is(err, sentinel.ErrAlreadyUsed):
		current, findErr := s.store.FindByID(ctx, ticketID)
		if findErr != nil {
			return models.RedemptionResult{}, dErrors.Wrap(findErr, dErrors.CodeUnavailable, "store unavailable")
		}
		s.observe(models.OutcomeAlreadyUsed)
		return models.RedemptionResult{Outcome: models.OutcomeAlreadyUsed, Ticket: &current}, nil

	case errors.Is(err, sentinel.ErrNotFound):
		s.observe(models.OutcomeNotFound)
		return models.RedemptionResult{Outcome: models.OutcomeNotFound}, nil

	default:
		return models.RedemptionResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
}

func (s *Service) observe(outcome models.RedemptionOutcome) {
	if s.metrics != nil {
		s.metrics.ObserveRedemption(string(outcome))
	}
}
