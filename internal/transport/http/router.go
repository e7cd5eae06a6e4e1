// Package http assembles the HTTP surface of the engine.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	paymenthandler "clubgate/internal/payments/handler"
	"clubgate/internal/platform/middleware"
	subscriptionhandler "clubgate/internal/subscription/handler"
	tickethandler "clubgate/internal/ticket/handler"
	"clubgate/internal/transport/http/shared"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config carries the handlers and cross-cutting pieces the router mounts.
type Config struct {
	Tickets       *tickethandler.Handler
	Subscriptions *subscriptionhandler.Handler
	Payments      *paymenthandler.Handler
	Logger        *slog.Logger
	Checkers      map[string]HealthChecker
	Timeout       time.Duration
}

// NewRouter wires middleware, domain routes, health, and metrics.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	cfg.Tickets.Register(r)
	cfg.Subscriptions.Register(r)
	cfg.Payments.Register(r)

	r.Get("/healthz", handleHealth(cfg.Checkers))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK

		if len(checkers) > 0 {
			resp.Checks = make(map[string]string, len(checkers))
			for name, checker := range checkers {
				if err := checker.Health(r.Context()); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
				} else {
					resp.Checks[name] = "ok"
				}
			}
		}

		shared.WriteJSON(w, status, resp)
	}
}
