package notification

import (
	"context"
	"log/slog"

	"clubgate/internal/platform/metrics"
)

// Publisher delivers a single fact to the outbound channel (Kafka, log, ...).
type Publisher interface {
	Publish(ctx context.Context, fact Fact) error
}

// AsyncDispatcher buffers facts on a channel and drains them on a background
// worker so request handlers never block on the messaging collaborator.
//
// A full buffer drops the fact: losing a confirmation message is acceptable,
// stalling a redemption is not.
type AsyncDispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	inbox     chan Fact
}

// NewAsyncDispatcher builds a dispatcher with the given buffer size.
func NewAsyncDispatcher(publisher Publisher, logger *slog.Logger, m *metrics.Metrics, buffer int) *AsyncDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncDispatcher{
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		inbox:     make(chan Fact, buffer),
	}
}

// Dispatch enqueues a fact without blocking.
func (d *AsyncDispatcher) Dispatch(fact Fact) {
	select {
	case d.inbox <- fact:
	default:
		if d.metrics != nil {
			d.metrics.NotificationDrops.Inc()
		}
		d.logger.Warn("notification buffer full, dropping fact",
			"kind", string(fact.Kind),
			"entity_id", fact.EntityID,
		)
	}
}

// Run drains the inbox until ctx is cancelled. Publish failures are logged and
// the fact dropped; the entitlement change it describes has already committed.
func (d *AsyncDispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fact := <-d.inbox:
			if err := d.publisher.Publish(ctx, fact); err != nil {
				if d.metrics != nil {
					d.metrics.NotificationDrops.Inc()
				}
				d.logger.Error("failed to publish notification",
					"error", err,
					"kind", string(fact.Kind),
					"entity_id", fact.EntityID,
				)
				continue
			}
			if d.metrics != nil {
				d.metrics.NotificationsSent.WithLabelValues(string(fact.Kind)).Inc()
			}
		}
	}
}
