// Package handler exposes ticket issuance, lookup, and redemption over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clubgate/internal/ticket/models"
	"clubgate/internal/ticket/service"
	"clubgate/internal/transport/http/shared"
	id "clubgate/pkg/domain"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/requestcontext"
)

// Service defines the ticket operations the handler needs.
type Service interface {
	Issue(ctx context.Context, in service.IssueInput) (models.Ticket, error)
	Get(ctx context.Context, ticketID id.TicketID) (models.Ticket, error)
	Redeem(ctx context.Context, ticketID id.TicketID) (models.RedemptionResult, error)
}

// Handler handles ticket endpoints.
type Handler struct {
	tickets Service
	logger  *slog.Logger
}

func New(tickets Service, logger *slog.Logger) *Handler {
	return &Handler{tickets: tickets, logger: logger}
}

// Register mounts the ticket routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tickets", h.handleIssue)
	r.Get("/tickets/{id}", h.handleGet)
	r.Post("/tickets/{id}/redeem", h.handleRedeem)
}

type issueRequest struct {
	EventID        string `json:"event_id"`
	TierID         string `json:"tier_id"`
	PurchaserName  string `json:"purchaser_name"`
	PurchaserEmail string `json:"purchaser_email"`
}

type ticketResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	TierID         string     `json:"tier_id"`
	PurchaserName  string     `json:"purchaser_name,omitempty"`
	PurchaserEmail string     `json:"purchaser_email,omitempty"`
	Validated      bool       `json:"is_validated"`
	ValidatedAt    *time.Time `json:"validated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type redemptionResponse struct {
	Result string          `json:"result"`
	Ticket *ticketResponse `json:"ticket,omitempty"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ticket, err := h.tickets.Issue(r.Context(), service.IssueInput{
		EventID:        req.EventID,
		TierID:         req.TierID,
		PurchaserName:  req.PurchaserName,
		PurchaserEmail: req.PurchaserEmail,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "ticket issuance rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toTicketResponse(ticket))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ticketID, err := id.ParseTicketID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	ticket, err := h.tickets.Get(r.Context(), ticketID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toTicketResponse(ticket))
}

// handleRedeem returns the scanner's tri-state outcome. Both redemption
// outcomes are 200s with a distinct result field: "already used" is a fact the
// operator acts on, not a request failure. Only an unknown ticket is a 404.
func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ticketID, err := id.ParseTicketID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.tickets.Redeem(r.Context(), ticketID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "redemption failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"ticket_id", ticketID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	resp := redemptionResponse{Result: string(result.Outcome)}
	if result.Ticket != nil {
		tr := toTicketResponse(*result.Ticket)
		resp.Ticket = &tr
	}

	status := http.StatusOK
	if result.Outcome == models.OutcomeNotFound {
		status = http.StatusNotFound
	}
	shared.WriteJSON(w, status, resp)
}

func toTicketResponse(t models.Ticket) ticketResponse {
	return ticketResponse{
		ID:             t.ID.String(),
		EventID:        t.EventID,
		TierID:         t.TierID,
		PurchaserName:  t.PurchaserName,
		PurchaserEmail: t.PurchaserEmail,
		Validated:      t.Validated,
		ValidatedAt:    t.ValidatedAt,
		CreatedAt:      t.CreatedAt,
	}
}
