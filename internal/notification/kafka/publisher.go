// Package kafka publishes notification facts to a Kafka topic via franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"clubgate/internal/notification"
	"clubgate/internal/platform/config"
)

// Publisher produces one record per fact, keyed by entity ID so facts for the
// same entitlement land on the same partition in order.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects to the configured brokers.
func NewPublisher(cfg config.KafkaConfig) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Publisher{client: client, topic: cfg.Topic}, nil
}

// Publish produces synchronously; the async dispatcher already decouples this
// from request handling.
func (p *Publisher) Publish(ctx context.Context, fact notification.Fact) error {
	value, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("marshal fact: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(fact.EntityID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce fact: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}
