package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	TicketsIssued      prometheus.Counter
	TicketRedemptions  *prometheus.CounterVec
	SubscriptionChecks *prometheus.CounterVec
	WebhookOutcomes    *prometheus.CounterVec
	WebhookDuration    prometheus.Histogram
	NotificationsSent  *prometheus.CounterVec
	NotificationDrops  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TicketsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubgate_tickets_issued_total",
			Help: "Total number of tickets issued",
		}),
		TicketRedemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubgate_ticket_redemptions_total",
			Help: "Ticket redemption attempts by outcome",
		}, []string{"outcome"}),
		SubscriptionChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubgate_subscription_checks_total",
			Help: "Subscription activity checks by resulting status",
		}, []string{"status"}),
		WebhookOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubgate_webhook_events_total",
			Help: "Payment webhook events by reconciliation outcome",
		}, []string{"outcome"}),
		WebhookDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubgate_webhook_duration_seconds",
			Help:    "Latency of webhook reconciliation",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubgate_notifications_sent_total",
			Help: "Notification facts dispatched by kind",
		}, []string{"kind"}),
		NotificationDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubgate_notifications_dropped_total",
			Help: "Notification facts dropped due to full buffer or publish failure",
		}),
	}
}

// ObserveRedemption records one redemption attempt outcome.
func (m *Metrics) ObserveRedemption(outcome string) {
	if m == nil {
		return
	}
	m.TicketRedemptions.WithLabelValues(outcome).Inc()
}

// ObserveSubscriptionCheck records one activity check result.
func (m *Metrics) ObserveSubscriptionCheck(status string) {
	if m == nil {
		return
	}
	m.SubscriptionChecks.WithLabelValues(status).Inc()
}

// ObserveWebhook records one reconciliation outcome and its duration.
func (m *Metrics) ObserveWebhook(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.WebhookOutcomes.WithLabelValues(outcome).Inc()
	m.WebhookDuration.Observe(seconds)
}
