package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"clubgate/internal/payments/models"
	"clubgate/internal/payments/service"
	"clubgate/internal/payments/signature"
	"clubgate/internal/payments/store"
	subservice "clubgate/internal/subscription/service"
	substore "clubgate/internal/subscription/store"
	"clubgate/pkg/platform/sentinel"
	"clubgate/pkg/testutil"
)

const testSecret = "whsec_test_secret"

func newRouter(t *testing.T) (chi.Router, *signature.Verifier, *subservice.Service) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	verifier := signature.NewVerifier(testSecret, 5*time.Minute)
	subs := subservice.New(substore.NewInMemoryStore(), logger, nil)
	reconciler := service.New(verifier, store.NewInMemoryStore(), subs, nil, logger, nil)

	r := chi.NewRouter()
	New(reconciler, logger).Register(r)
	return r, verifier, subs
}

func signedRequest(t *testing.T, v *signature.Verifier, body []byte) *http.Request {
	t.Helper()
	req := testutil.NewRequestWithBody(t, http.MethodPost, "/webhooks/payments", string(body))
	req.Header.Set(signature.Header, v.SignatureHeader(time.Now().Unix(), body))
	return req
}

func checkoutBody(t *testing.T, eventID, subscriptionRef string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":      eventID,
		"type":    models.EventCheckoutCompleted,
		"created": time.Now().Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":           "cs_" + eventID,
				"mode":         models.ModeSubscription,
				"subscription": subscriptionRef,
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestWebhookAppliesAndAcknowledges(t *testing.T) {
	r, v, subs := newRouter(t)
	sub, err := subs.Create(context.Background(), subservice.CreateInput{
		SubscriptionTypeID:    "season-2026",
		ValidFrom:             time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:               time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		GatewaySubscriptionID: "sub_gw_1",
	})
	require.NoError(t, err)

	body := checkoutBody(t, "evt_1", "sub_gw_1")
	rr := testutil.DoRequest(r, signedRequest(t, v, body))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	testutil.AssertJSONContains(t, rr, "received", true)
	testutil.AssertJSONContains(t, rr, "outcome", "applied")

	check, err := subs.Check(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Equal(t, "active", string(check.Subscription.Status))

	// Redelivery is acknowledged without reapplying.
	rr = testutil.DoRequest(r, signedRequest(t, v, body))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	testutil.AssertJSONContains(t, rr, "outcome", "already_processed")
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	r, _, _ := newRouter(t)
	body := checkoutBody(t, "evt_1", "sub_gw_1")

	req := testutil.NewRequestWithBody(t, http.MethodPost, "/webhooks/payments", string(body))
	req.Header.Set(signature.Header, "t=1700000000,v1=deadbeef")
	rr := testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "invalid_signature")

	req = testutil.NewRequestWithBody(t, http.MethodPost, "/webhooks/payments", string(body))
	rr = testutil.DoRequest(r, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "invalid_signature")
}

func TestWebhookAcknowledgesUnknownReference(t *testing.T) {
	r, v, _ := newRouter(t)

	rr := testutil.DoRequest(r, signedRequest(t, v, checkoutBody(t, "evt_1", "sub_gw_unknown")))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	testutil.AssertJSONContains(t, rr, "received", true)
	testutil.AssertJSONContains(t, rr, "outcome", "reference_not_found")
}

func TestWebhookRejectsUndecodableBody(t *testing.T) {
	r, v, _ := newRouter(t)

	rr := testutil.DoRequest(r, signedRequest(t, v, []byte(`{not json`)))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "bad_request")
}

type unavailableStore struct{}

func (unavailableStore) InsertMarker(context.Context, models.ProcessedEventMarker) error {
	return sentinel.ErrUnavailable
}

func (unavailableStore) HasMarker(context.Context, string) (bool, error) {
	return false, sentinel.ErrUnavailable
}

func TestWebhookReportsLedgerOutage(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	verifier := signature.NewVerifier(testSecret, 5*time.Minute)
	subs := subservice.New(substore.NewInMemoryStore(), logger, nil)
	reconciler := service.New(verifier, unavailableStore{}, subs, nil, logger, nil)

	r := chi.NewRouter()
	New(reconciler, logger).Register(r)

	rr := testutil.DoRequest(r, signedRequest(t, verifier, checkoutBody(t, "evt_1", "sub_gw_1")))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	testutil.AssertErrorCode(t, rr, "unavailable")
}
