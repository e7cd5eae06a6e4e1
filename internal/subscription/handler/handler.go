// Package handler exposes subscription purchase and activity checks over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"clubgate/internal/subscription/models"
	"clubgate/internal/subscription/service"
	"clubgate/internal/transport/http/shared"
	id "clubgate/pkg/domain"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/requestcontext"
)

// Service defines the subscription operations the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (models.Subscription, error)
	Check(ctx context.Context, subID id.SubscriptionID) (service.CheckResult, error)
}

// Handler handles subscription endpoints.
type Handler struct {
	subs   Service
	logger *slog.Logger
}

func New(subs Service, logger *slog.Logger) *Handler {
	return &Handler{subs: subs, logger: logger}
}

// Register mounts the subscription routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subscriptions", h.handleCreate)
	r.Get("/subscriptions/{id}/status", h.handleStatus)
}

type createRequest struct {
	SubscriptionTypeID    string    `json:"subscription_type_id"`
	PurchaserName         string    `json:"purchaser_name"`
	PurchaserEmail        string    `json:"purchaser_email"`
	ValidFrom             time.Time `json:"valid_from"`
	ValidTo               time.Time `json:"valid_to"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id"`
}

type subscriptionResponse struct {
	ID                    string    `json:"id"`
	SubscriptionTypeID    string    `json:"subscription_type_id"`
	PurchaserName         string    `json:"purchaser_name,omitempty"`
	PurchaserEmail        string    `json:"purchaser_email,omitempty"`
	ValidFrom             time.Time `json:"valid_from"`
	ValidTo               time.Time `json:"valid_to"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id,omitempty"`
	Status                string    `json:"status"`
}

type statusResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	Window       string               `json:"window"`
	Status       string               `json:"status"`
	Message      string               `json:"message"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sub, err := h.subs.Create(r.Context(), service.CreateInput{
		SubscriptionTypeID:    req.SubscriptionTypeID,
		PurchaserName:         req.PurchaserName,
		PurchaserEmail:        req.PurchaserEmail,
		ValidFrom:             req.ValidFrom,
		ValidTo:               req.ValidTo,
		GatewaySubscriptionID: req.GatewaySubscriptionID,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "subscription creation rejected",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.subs.Check(r.Context(), subID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, statusResponse{
		Subscription: toSubscriptionResponse(result.Subscription),
		Window:       string(result.Window),
		Status:       string(result.Status),
		Message:      result.Message,
	})
}

func toSubscriptionResponse(sub models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                    sub.ID.String(),
		SubscriptionTypeID:    sub.SubscriptionTypeID,
		PurchaserName:         sub.PurchaserName,
		PurchaserEmail:        sub.PurchaserEmail,
		ValidFrom:             sub.ValidFrom,
		ValidTo:               sub.ValidTo,
		GatewaySubscriptionID: sub.GatewaySubscriptionID,
		Status:                string(sub.Status),
	}
}
