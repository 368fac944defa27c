package indexer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/infrastructure/indexer"
	infrakafka "github.com/bibbank/microloan/internal/infrastructure/kafka"
	pkgevents "github.com/bibbank/microloan/pkg/events"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
)

type mockStore struct {
	indexFunc func(ctx context.Context, e indexer.Entry) error
}

func (m *mockStore) Index(ctx context.Context, e indexer.Entry) error {
	return m.indexFunc(ctx, e)
}

var at = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

// published reproduces the message the outbox relay sends for evt.
func published(t *testing.T, evt pkgevents.DomainEvent) pkgkafka.Message {
	t.Helper()
	entry, err := pkgevents.NewOutboxEntry(evt)
	require.NoError(t, err)
	return pkgkafka.Message{
		Key:   []byte(entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			infrakafka.HeaderEventType:     entry.EventType,
			infrakafka.HeaderEventID:       entry.ID.String(),
			infrakafka.HeaderAggregateType: entry.AggregateType,
		},
	}
}

func TestDecode(t *testing.T) {
	borrower := uuid.New()

	t.Run("loan event carries borrower", func(t *testing.T) {
		evt := event.NewLoanDefaulted("loan/"+borrower.String()+"/3", 3, borrower, 500, 20, at)

		e, err := indexer.Decode(published(t, evt))
		require.NoError(t, err)
		assert.Equal(t, evt.EventID(), e.EventID)
		assert.Equal(t, event.TypeLoanDefaulted, e.EventType)
		assert.Equal(t, "loan", e.AggregateType)
		assert.Equal(t, evt.AggregateID(), e.AggregateID)
		require.NotNil(t, e.Borrower)
		assert.Equal(t, borrower, *e.Borrower)
		assert.True(t, at.Equal(e.OccurredAt))
	})

	t.Run("program event has no borrower", func(t *testing.T) {
		evt := event.NewProgramPauseSet("program", true, borrower, at)

		e, err := indexer.Decode(published(t, evt))
		require.NoError(t, err)
		assert.Nil(t, e.Borrower)
		assert.Equal(t, "program", e.AggregateID)
	})

	t.Run("payload alone is enough", func(t *testing.T) {
		msg := published(t, event.NewProgramInitialized("program", borrower, 100, at))
		msg.Headers = nil

		e, err := indexer.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, event.TypeProgramInitialized, e.EventType)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := indexer.Decode(pkgkafka.Message{Value: []byte("not json")})
		assert.Error(t, err)

		_, err = indexer.Decode(pkgkafka.Message{Value: []byte(`{}`)})
		assert.Error(t, err)

		msg := published(t, event.NewProgramInitialized("program", borrower, 100, at))
		msg.Headers[infrakafka.HeaderEventID] = "bogus"
		_, err = indexer.Decode(msg)
		assert.Error(t, err)
	})
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	msg := published(t, event.NewProgramInitialized("program", uuid.New(), 100, at))

	t.Run("indexes decoded entry", func(t *testing.T) {
		var got indexer.Entry
		store := &mockStore{indexFunc: func(_ context.Context, e indexer.Entry) error {
			got = e
			return nil
		}}

		require.NoError(t, indexer.Handler(store, logger)(context.Background(), msg))
		assert.Equal(t, event.TypeProgramInitialized, got.EventType)
		assert.JSONEq(t, string(msg.Value), string(got.Payload))
	})

	t.Run("undecodable message is skipped", func(t *testing.T) {
		store := &mockStore{indexFunc: func(context.Context, indexer.Entry) error {
			t.Fatal("store should not be called")
			return nil
		}}

		err := indexer.Handler(store, logger)(context.Background(), pkgkafka.Message{Value: []byte("{")})
		assert.ErrorIs(t, err, pkgkafka.ErrSkip)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		down := errors.New("connection reset")
		store := &mockStore{indexFunc: func(context.Context, indexer.Entry) error { return down }}

		err := indexer.Handler(store, logger)(context.Background(), msg)
		assert.ErrorIs(t, err, down)
		assert.NotErrorIs(t, err, pkgkafka.ErrSkip)
	})
}
