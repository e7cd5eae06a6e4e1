package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubgate/internal/notification"
	"clubgate/internal/payments/models"
	"clubgate/internal/payments/signature"
	"clubgate/internal/payments/store"
	submodels "clubgate/internal/subscription/models"
	subservice "clubgate/internal/subscription/service"
	substore "clubgate/internal/subscription/store"
	dErrors "clubgate/pkg/domain-errors"
)

const testSecret = "whsec_test_secret"

type recordingDispatcher struct {
	mu    sync.Mutex
	facts []notification.Fact
}

func (d *recordingDispatcher) Dispatch(fact notification.Fact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.facts = append(d.facts, fact)
}

func (d *recordingDispatcher) Facts() []notification.Fact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Fact(nil), d.facts...)
}

type fixture struct {
	reconciler *Reconciler
	verifier   *signature.Verifier
	subs       *subservice.Service
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	verifier := signature.NewVerifier(testSecret, 5*time.Minute)
	subs := subservice.New(substore.NewInMemoryStore(), logger, nil)
	dispatcher := &recordingDispatcher{}
	return &fixture{
		reconciler: New(verifier, store.NewInMemoryStore(), subs, dispatcher, logger, nil),
		verifier:   verifier,
		subs:       subs,
		dispatcher: dispatcher,
	}
}

func (f *fixture) seedSubscription(t *testing.T, gatewayRef string) submodels.Subscription {
	t.Helper()
	sub, err := f.subs.Create(context.Background(), subservice.CreateInput{
		SubscriptionTypeID:    "season-2026",
		ValidFrom:             time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:               time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		GatewaySubscriptionID: gatewayRef,
	})
	require.NoError(t, err)
	return sub
}

func checkoutEvent(t *testing.T, eventID, mode, subscriptionRef string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    models.EventCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_" + eventID,
				"mode":         mode,
				"subscription": subscriptionRef,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func (f *fixture) deliver(t *testing.T, body []byte) (Result, error) {
	t.Helper()
	header := f.verifier.SignatureHeader(time.Now().Unix(), body)
	return f.reconciler.Reconcile(context.Background(), body, header)
}

func TestReconcileActivatesSubscription(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, "sub_gw_1")

	result, err := f.deliver(t, checkoutEvent(t, "evt_1", models.ModeSubscription, "sub_gw_1"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, result.Outcome)
	assert.Equal(t, "evt_1", result.EventID)

	check, err := f.subs.Check(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, submodels.StatusActive, check.Subscription.Status)

	facts := f.dispatcher.Facts()
	require.Len(t, facts, 1)
	assert.Equal(t, notification.KindSubscriptionActivated, facts[0].Kind)
	assert.Equal(t, sub.ID.String(), facts[0].EntityID)
}

func TestReconcileDuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	f.seedSubscription(t, "sub_gw_1")
	body := checkoutEvent(t, "evt_1", models.ModeSubscription, "sub_gw_1")

	first, err := f.deliver(t, body)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeApplied, first.Outcome)

	second, err := f.deliver(t, body)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyProcessed, second.Outcome)

	// Only the first delivery produced a notification.
	assert.Len(t, f.dispatcher.Facts(), 1)
}

func TestReconcileInvalidSignature(t *testing.T) {
	f := newFixture(t)
	body := checkoutEvent(t, "evt_1", models.ModeSubscription, "sub_gw_1")

	forged := signature.NewVerifier("whsec_wrong", 5*time.Minute)
	result, err := f.reconciler.Reconcile(context.Background(), body,
		forged.SignatureHeader(time.Now().Unix(), body))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInvalidSignature, result.Outcome)

	// A rejected delivery claims nothing: the same event id is still fresh.
	retried, err := f.deliver(t, body)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeReferenceNotFound, retried.Outcome)
}

func TestReconcileReferenceNotFound(t *testing.T) {
	f := newFixture(t)

	result, err := f.deliver(t, checkoutEvent(t, "evt_1", models.ModeSubscription, "sub_gw_unknown"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeReferenceNotFound, result.Outcome)
	assert.Empty(t, f.dispatcher.Facts())
}

func TestReconcileIgnoresNonSubscriptionEvents(t *testing.T) {
	f := newFixture(t)

	cases := map[string][]byte{
		"payment mode":   checkoutEvent(t, "evt_pay", models.ModePayment, ""),
		"missing ref":    checkoutEvent(t, "evt_noref", models.ModeSubscription, ""),
		"unhandled type": []byte(`{"id":"evt_other","type":"invoice.paid","data":{"object":{}}}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := f.deliver(t, body)
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeIgnored, result.Outcome)
		})
	}

	// Ignored events are still claimed so re-deliveries short-circuit.
	result, err := f.deliver(t, checkoutEvent(t, "evt_pay", models.ModePayment, ""))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyProcessed, result.Outcome)
}

func TestReconcileUndecodableBody(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{not json`)

	_, err := f.reconciler.Reconcile(context.Background(), body,
		f.verifier.SignatureHeader(time.Now().Unix(), body))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestReconcileRepeatedActivationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedSubscription(t, "sub_gw_1")

	// Two distinct gateway events referencing the same subscription: both
	// apply, only the first performs the transition and notifies.
	for i := 1; i <= 2; i++ {
		result, err := f.deliver(t, checkoutEvent(t, fmt.Sprintf("evt_%d", i), models.ModeSubscription, "sub_gw_1"))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeApplied, result.Outcome)
	}
	assert.Len(t, f.dispatcher.Facts(), 1)
}
