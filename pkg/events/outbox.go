package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxEntry is one committed event waiting to be relayed. ID is the
// event's own ID, so a redelivered entry keeps its identity downstream.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewOutboxEntry encodes event as JSON into a fresh, unpublished entry.
func NewOutboxEntry(event DomainEvent) (OutboxEntry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return OutboxEntry{
		ID:            event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		EventType:     event.EventType(),
		Payload:       payload,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// Published reports whether the relay has acknowledged the entry.
func (e OutboxEntry) Published() bool { return e.PublishedAt != nil }

// OutboxRepository holds entries between commit and relay. FetchUnpublished
// returns the oldest entries first.
type OutboxRepository interface {
	Store(ctx context.Context, entries []OutboxEntry) error
	FetchUnpublished(ctx context.Context, batchSize int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher hands entries to the broker. A nil return means every entry
// was accepted.
type Publisher interface {
	Publish(ctx context.Context, entries ...OutboxEntry) error
}
