package kafka_test

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
	"github.com/bibbank/microloan/internal/infrastructure/kafka"
	pkgevents "github.com/bibbank/microloan/pkg/events"
	pkgkafka "github.com/bibbank/microloan/pkg/kafka"
)

var testTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type mockProducer struct {
	publishFunc func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

func (m *mockProducer) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	return m.publishFunc(ctx, topic, messages...)
}

func TestEventPublisher_Publish(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	borrower := uuid.New()
	evt := event.NewPaymentRecorded("loan/"+borrower.String()+"/0", 0, borrower, 1, 100, 0, true, 0, testTime)
	entry, err := pkgevents.NewOutboxEntry(evt)
	require.NoError(t, err)

	t.Run("keys by aggregate and sets headers", func(t *testing.T) {
		var gotTopic string
		var got []pkgkafka.Message
		producer := &mockProducer{publishFunc: func(_ context.Context, topic string, messages ...pkgkafka.Message) error {
			gotTopic = topic
			got = messages
			return nil
		}}

		pub := kafka.NewEventPublisher(producer, "microloan.events", logger)
		require.NoError(t, pub.Publish(context.Background(), entry))

		assert.Equal(t, "microloan.events", gotTopic)
		require.Len(t, got, 1)
		assert.Equal(t, entry.AggregateID, string(got[0].Key))
		assert.Equal(t, entry.Payload, got[0].Value)
		assert.Equal(t, event.TypePaymentRecorded, got[0].Headers[kafka.HeaderEventType])
		assert.Equal(t, evt.EventID().String(), got[0].Headers[kafka.HeaderEventID])
		assert.Equal(t, "loan", got[0].Headers[kafka.HeaderAggregateType])
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		producer := &mockProducer{publishFunc: func(context.Context, string, ...pkgkafka.Message) error {
			t.Fatal("producer should not be called")
			return nil
		}}
		assert.NoError(t, kafka.NewEventPublisher(producer, "t", logger).Publish(context.Background()))
	})

	t.Run("producer failure is wrapped", func(t *testing.T) {
		boom := errors.New("broker unavailable")
		producer := &mockProducer{publishFunc: func(context.Context, string, ...pkgkafka.Message) error {
			return boom
		}}
		err := kafka.NewEventPublisher(producer, "t", logger).Publish(context.Background(), entry)
		assert.ErrorIs(t, err, boom)
	})
}
