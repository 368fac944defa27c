package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibbank/microloan/internal/domain/port"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
)

// Header names carried on every published event.
const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderAggregateType = "aggregate_type"
)

// MessageProducer is the slice of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// EventPublisher implements port.EventPublisher by writing outbox entries to
// a single Kafka topic keyed by aggregate.
type EventPublisher struct {
	producer MessageProducer
	topic    string
	logger   *slog.Logger
}

// NewEventPublisher creates a publisher targeting the given producer and topic.
func NewEventPublisher(producer MessageProducer, topic string, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Publish sends entries in one batch. The stored JSON payload is forwarded
// unchanged.
func (p *EventPublisher) Publish(ctx context.Context, entries ...port.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}

	messages := make([]pkgkafka.Message, 0, len(entries))
	for _, e := range entries {
		p.logger.DebugContext(ctx, "publishing domain event",
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
			"topic", p.topic,
			"payload_size", len(e.Payload),
		)

		messages = append(messages, pkgkafka.Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: map[string]string{
				HeaderEventType:     e.EventType,
				HeaderEventID:       e.ID.String(),
				HeaderAggregateType: e.AggregateType,
			},
		})
	}

	if err := p.producer.Publish(ctx, p.topic, messages...); err != nil {
		return fmt.Errorf("publish %d events to topic %s: %w", len(messages), p.topic, err)
	}
	return nil
}
