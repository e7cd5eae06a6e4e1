// Package service reconciles payment gateway webhook deliveries against
// entitlement state.
//
// The pipeline is strictly ordered: verify the signature, claim the event id
// in the dedup ledger, then classify and apply. Claiming before applying means
// a concurrent duplicate delivery can never apply twice; the unique constraint
// on the marker is the arbiter.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clubgate/internal/notification"
	"clubgate/internal/payments/models"
	"clubgate/internal/payments/signature"
	"clubgate/internal/payments/store"
	"clubgate/internal/platform/metrics"
	subscription "clubgate/internal/subscription/models"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/platform/sentinel"
	"clubgate/pkg/requestcontext"
)

// SubscriptionActivator is the reconciler's port into the subscription
// context. Returns sentinel.ErrNotFound when no record carries the ref.
type SubscriptionActivator interface {
	ActivateByGatewayRef(ctx context.Context, gatewayRef string) (subscription.Subscription, bool, error)
}

// Result is the classification of one webhook delivery.
type Result struct {
	Outcome models.Outcome
	EventID string
	Detail  string
}

// Reconciler applies verified gateway events to entitlement state exactly
// once per event id.
type Reconciler struct {
	verifier      *signature.Verifier
	markers       store.MarkerStore
	subscriptions SubscriptionActivator
	dispatcher    notification.Dispatcher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

func New(
	verifier *signature.Verifier,
	markers store.MarkerStore,
	subscriptions SubscriptionActivator,
	dispatcher notification.Dispatcher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Reconciler {
	if dispatcher == nil {
		dispatcher = notification.Noop{}
	}
	return &Reconciler{
		verifier:      verifier,
		markers:       markers,
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
		logger:        logger,
		metrics:       m,
		tracer:        otel.Tracer("clubgate/payments"),
	}
}

// Reconcile processes one raw delivery. A Result is returned for every
// classifiable delivery, including rejected signatures; an error means the
// body was undecodable or a store failed and the gateway should retry.
func (r *Reconciler) Reconcile(ctx context.Context, body []byte, sigHeader string) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "payments.Reconcile")
	defer span.End()

	start := time.Now()
	result, err := r.reconcile(ctx, body, sigHeader)
	if err == nil {
		span.SetAttributes(
			attribute.String("event.id", result.EventID),
			attribute.String("event.outcome", string(result.Outcome)),
		)
		r.metrics.ObserveWebhook(string(result.Outcome), time.Since(start).Seconds())
	}
	return result, err
}

func (r *Reconciler) reconcile(ctx context.Context, body []byte, sigHeader string) (Result, error) {
	now := requestcontext.Now(ctx)

	if err := r.verifier.Verify(sigHeader, body, now); err != nil {
		r.logger.WarnContext(ctx, "webhook signature rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return Result{Outcome: models.OutcomeInvalidSignature, Detail: err.Error()}, nil
	}

	evt, err := models.ParseEvent(body)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "undecodable event payload")
	}

	// Claim the event id before touching any entitlement state. Losing the
	// claim means another delivery of this event already ran (or is running)
	// the apply step.
	err = r.markers.InsertMarker(ctx, models.ProcessedEventMarker{
		EventID:    evt.ID,
		Type:       evt.Type,
		ReceivedAt: now,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return Result{Outcome: models.OutcomeAlreadyProcessed, EventID: evt.ID}, nil
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "event ledger unavailable")
	}

	return r.apply(ctx, evt, now)
}

func (r *Reconciler) apply(ctx context.Context, evt models.Event, now time.Time) (Result, error) {
	if evt.Type != models.EventCheckoutCompleted {
		return Result{Outcome: models.OutcomeIgnored, EventID: evt.ID, Detail: "unhandled event type " + evt.Type}, nil
	}

	session, err := evt.CheckoutSession()
	if err != nil {
		return Result{Outcome: models.OutcomeIgnored, EventID: evt.ID, Detail: err.Error()}, nil
	}
	if session.Mode != models.ModeSubscription || session.SubscriptionID == "" {
		return Result{Outcome: models.OutcomeIgnored, EventID: evt.ID, Detail: "no subscription intent"}, nil
	}

	sub, changed, err := r.subscriptions.ActivateByGatewayRef(ctx, session.SubscriptionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "gateway reference matches no subscription",
				"event_id", evt.ID,
				"gateway_subscription_id", session.SubscriptionID,
			)
			return Result{Outcome: models.OutcomeReferenceNotFound, EventID: evt.ID}, nil
		}
		return Result{}, err
	}

	if changed {
		r.dispatcher.Dispatch(notification.Fact{
			Kind:       notification.KindSubscriptionActivated,
			EntityID:   sub.ID.String(),
			OccurredAt: now,
		})
	}

	r.logger.InfoContext(ctx, "subscription activation reconciled",
		"event_id", evt.ID,
		"subscription_id", sub.ID.String(),
		"transition_performed", changed,
	)
	return Result{Outcome: models.OutcomeApplied, EventID: evt.ID}, nil
}
