// Package indexer projects published ledger events into a queryable index.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	infrakafka "github.com/bibbank/microloan/internal/infrastructure/kafka"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
)

// Entry is one indexed event.
type Entry struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	Borrower      *uuid.UUID
	OccurredAt    time.Time
	Payload       []byte
}

// Store persists index entries. Index must be idempotent on EventID since
// the consumer delivers at least once.
type Store interface {
	Index(ctx context.Context, e Entry) error
}

// envelope mirrors the fields every event payload carries.
type envelope struct {
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   string     `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	OccurredAt    time.Time  `json:"occurred_at"`
	User          *uuid.UUID `json:"user,omitempty"`
}

// Decode builds an Entry from a consumed message. Headers win over the
// payload envelope when both are present.
func Decode(msg pkgkafka.Message) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Entry{}, fmt.Errorf("decode event payload: %w", err)
	}

	e := Entry{
		EventID:       env.EventID,
		EventType:     env.EventType,
		AggregateType: env.AggregateType,
		AggregateID:   env.AggregateID,
		Borrower:      env.User,
		OccurredAt:    env.OccurredAt,
		Payload:       msg.Value,
	}
	if v, ok := msg.Headers[infrakafka.HeaderEventID]; ok {
		id, err := uuid.Parse(v)
		if err != nil {
			return Entry{}, fmt.Errorf("event id header %q: %w", v, err)
		}
		e.EventID = id
	}
	if v := msg.Headers[infrakafka.HeaderEventType]; v != "" {
		e.EventType = v
	}
	if v := msg.Headers[infrakafka.HeaderAggregateType]; v != "" {
		e.AggregateType = v
	}
	if e.AggregateID == "" {
		e.AggregateID = string(msg.Key)
	}

	if e.EventID == uuid.Nil || e.EventType == "" {
		return Entry{}, fmt.Errorf("event is missing id or type")
	}
	return e, nil
}

// Handler returns a consumer handler that indexes each message. Messages
// that cannot be decoded are skipped; store failures are returned so the
// consumer retries them.
func Handler(store Store, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, msg pkgkafka.Message) error {
		e, err := Decode(msg)
		if err != nil {
			return fmt.Errorf("%w: %w", pkgkafka.ErrSkip, err)
		}
		if err := store.Index(ctx, e); err != nil {
			return fmt.Errorf("index event %s: %w", e.EventID, err)
		}
		logger.DebugContext(ctx, "event indexed",
			"event_id", e.EventID,
			"event_type", e.EventType,
			"aggregate_id", e.AggregateID,
		)
		return nil
	}
}
