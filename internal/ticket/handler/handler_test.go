package handler

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubgate/internal/ticket/service"
	"clubgate/internal/ticket/store"
	id "clubgate/pkg/domain"
	"clubgate/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	svc := service.New(store.NewInMemoryStore(), nil, slog.New(slog.DiscardHandler), nil)
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r, svc
}

func TestIssueAndRedeemFlow(t *testing.T) {
	r, _ := newRouter(t)

	// Issue.
	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/tickets", map[string]string{
		"event_id": "match-42",
		"tier_id":  "east-stand",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	issued := testutil.UnmarshalResponse[map[string]any](t, rr)
	ticketID := (*issued)["id"].(string)
	require.NotEmpty(t, ticketID)

	// First scan redeems.
	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/tickets/"+ticketID+"/redeem"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "result", "redeemed")

	// Second scan reports already_used, still a 200.
	rr = testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/tickets/"+ticketID+"/redeem"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "result", "already_used")
}

func TestRedeemUnknownTicketReturns404(t *testing.T) {
	r, _ := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/tickets/"+id.NewTicketID().String()+"/redeem"))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	testutil.AssertJSONContains(t, rr, "result", "not_found")
}

func TestRedeemRejectsMalformedID(t *testing.T) {
	r, _ := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/tickets/not-a-uuid/redeem"))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "validation")
}

func TestIssueRejectsInvalidBody(t *testing.T) {
	r, _ := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/tickets", "{not json"))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertErrorCode(t, rr, "bad_request")
}

func TestGetTicketDetail(t *testing.T) {
	r, svc := newRouter(t)

	ticket, err := svc.Issue(testutil.NewRequest(t, http.MethodGet, "/").Context(), service.IssueInput{
		EventID: "match-7", TierID: "ga",
	})
	require.NoError(t, err)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/tickets/"+ticket.ID.String()))
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr, "event_id", "match-7")
	testutil.AssertJSONContains(t, rr, "is_validated", false)
	assert.NotContains(t, rr.Body.String(), "validated_at")
}
