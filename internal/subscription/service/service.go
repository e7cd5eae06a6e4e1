// Package service implements subscription purchase, activity checks, and the
// gateway-driven activation used by payment reconciliation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"clubgate/internal/platform/metrics"
	"clubgate/internal/subscription/models"
	"clubgate/internal/subscription/store"
	id "clubgate/pkg/domain"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/platform/sentinel"
	"clubgate/pkg/requestcontext"
)

// Service owns subscription state. The window evaluation itself is pure
// (models.Subscription.WindowAt); the service adds persistence and the
// derived-status cache.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(st store.Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: st, logger: logger, metrics: m}
}

// CreateInput carries the purchase-time fields for a new subscription.
type CreateInput struct {
	SubscriptionTypeID    string
	PurchaserName         string
	PurchaserEmail        string
	ValidFrom             time.Time
	ValidTo               time.Time
	GatewaySubscriptionID string
}

// Create records a pending subscription. The window invariant
// (validFrom <= validTo) is enforced here, once, so evaluation never has to
// consider malformed windows.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.Subscription, error) {
	in.SubscriptionTypeID = strings.TrimSpace(in.SubscriptionTypeID)
	if in.SubscriptionTypeID == "" {
		return models.Subscription{}, dErrors.New(dErrors.CodeValidation, "subscription type id is required")
	}
	if in.ValidFrom.IsZero() || in.ValidTo.IsZero() {
		return models.Subscription{}, dErrors.New(dErrors.CodeValidation, "validity window is required")
	}
	if in.ValidFrom.After(in.ValidTo) {
		return models.Subscription{}, dErrors.New(dErrors.CodeValidation, "valid_from must not be after valid_to")
	}
	if in.PurchaserEmail != "" && !govalidator.IsEmail(in.PurchaserEmail) {
		return models.Subscription{}, dErrors.New(dErrors.CodeValidation, "invalid purchaser email")
	}

	sub := models.Subscription{
		ID:                    id.NewSubscriptionID(),
		SubscriptionTypeID:    in.SubscriptionTypeID,
		PurchaserName:         strings.TrimSpace(in.PurchaserName),
		PurchaserEmail:        in.PurchaserEmail,
		ValidFrom:             in.ValidFrom,
		ValidTo:               in.ValidTo,
		GatewaySubscriptionID: strings.TrimSpace(in.GatewaySubscriptionID),
		Status:                models.StatusPending,
	}

	if err := s.store.Insert(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Subscription{}, dErrors.New(dErrors.CodeConflict, "gateway reference already registered")
		}
		return models.Subscription{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create subscription")
	}
	return sub, nil
}

// CheckResult is the activity check: the entity, the window evaluation at the
// request instant, and an operator-readable message.
type CheckResult struct {
	Subscription models.Subscription
	Window       models.WindowStatus
	Status       models.Status
	Message      string
}

// Check evaluates the subscription window at the request time. The cached
// status column is refreshed when it drifts from the computed value; the
// computed value is what callers get either way.
func (s *Service) Check(ctx context.Context, subID id.SubscriptionID) (CheckResult, error) {
	sub, err := s.store.FindByID(ctx, subID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return CheckResult{}, dErrors.New(dErrors.CodeNotFound, "subscription not found")
		}
		return CheckResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}

	now := requestcontext.Now(ctx)
	window := sub.WindowAt(now)
	status := window.CachedStatus()

	if status != sub.Status {
		if err := s.store.UpdateStatus(ctx, sub.ID, status); err != nil {
			// Cache refresh only; the computed result is still authoritative.
			s.logger.WarnContext(ctx, "failed to refresh cached subscription status",
				"subscription_id", sub.ID.String(),
				"error", err.Error(),
			)
		} else {
			sub.Status = status
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSubscriptionCheck(string(status))
	}

	return CheckResult{
		Subscription: sub,
		Window:       window,
		Status:       status,
		Message:      checkMessage(window, sub, now),
	}, nil
}

// ActivateByGatewayRef is the reconciliation entry point: idempotently marks
// the referenced subscription active. The bool reports whether this call
// performed the transition.
func (s *Service) ActivateByGatewayRef(ctx context.Context, gatewayRef string) (models.Subscription, bool, error) {
	sub, changed, err := s.store.ActivateByGatewayRef(ctx, gatewayRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Subscription{}, false, sentinel.ErrNotFound
		}
		return models.Subscription{}, false, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return sub, changed, nil
}

func checkMessage(window models.WindowStatus, sub models.Subscription, now time.Time) string {
	switch window {
	case models.WindowActive:
		return "subscription is active until " + sub.ValidTo.Format(time.RFC3339)
	case models.WindowExpired:
		return "subscription expired on " + sub.ValidTo.Format(time.RFC3339)
	default:
		return "subscription starts on " + sub.ValidFrom.Format(time.RFC3339)
	}
}
