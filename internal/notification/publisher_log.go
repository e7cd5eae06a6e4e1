package notification

import (
	"context"
	"log/slog"
)

// LogPublisher writes facts to the structured log. Default publisher for
// development and single-node deployments without Kafka.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, fact Fact) error {
	p.logger.Info("notification",
		"kind", string(fact.Kind),
		"entity_id", fact.EntityID,
		"occurred_at", fact.OccurredAt,
	)
	return nil
}
