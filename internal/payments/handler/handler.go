// Package handler receives payment gateway webhook deliveries.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clubgate/internal/payments/models"
	"clubgate/internal/payments/service"
	"clubgate/internal/payments/signature"
	"clubgate/internal/transport/http/shared"
	dErrors "clubgate/pkg/domain-errors"
	"clubgate/pkg/requestcontext"
)

// Gateway deliveries are small JSON envelopes; anything larger is abuse.
const maxBodyBytes = 1 << 20

// Reconciler defines the reconciliation operation the handler needs.
type Reconciler interface {
	Reconcile(ctx context.Context, body []byte, sigHeader string) (service.Result, error)
}

// Handler handles the webhook endpoint.
type Handler struct {
	reconciler Reconciler
	logger     *slog.Logger
}

func New(reconciler Reconciler, logger *slog.Logger) *Handler {
	return &Handler{reconciler: reconciler, logger: logger}
}

// Register mounts the webhook route on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/payments", h.handleWebhook)
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// handleWebhook acknowledges every classifiable delivery with a 202 so the
// gateway stops retrying; retries only help when a store was unavailable.
// An invalid signature is the one classification that must not be
// acknowledged.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable request body"))
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), body, r.Header.Get(signature.Header))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "webhook reconciliation failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	if result.Outcome == models.OutcomeInvalidSignature {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidSignature, "webhook signature verification failed"))
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, webhookResponse{
		Received: true,
		Outcome:  string(result.Outcome),
	})
}
