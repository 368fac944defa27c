package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/microloan/internal/application/usecase"
	"github.com/bibbank/microloan/pkg/events"
)

func TestRelayOutbox_Execute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pending := []events.OutboxEntry{{ID: uuid.New(), EventType: "a"}, {ID: uuid.New(), EventType: "b"}}

	t.Run("publishes then marks", func(t *testing.T) {
		outbox := &mockOutboxRepository{
			fetchFunc: func(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
				assert.Equal(t, 50, batchSize)
				return pending, nil
			},
		}
		publisher := &mockEventPublisher{}

		n, err := usecase.NewRelayOutboxUseCase(outbox, publisher, 50, logger).Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, pending, publisher.published)
		assert.Equal(t, []uuid.UUID{pending[0].ID, pending[1].ID}, outbox.marked)
	})

	t.Run("publish failure leaves entries pending", func(t *testing.T) {
		outbox := &mockOutboxRepository{
			fetchFunc: func(context.Context, int) ([]events.OutboxEntry, error) { return pending, nil },
		}
		publisher := &mockEventPublisher{
			publishFunc: func(context.Context, ...events.OutboxEntry) error { return errors.New("broker down") },
		}

		_, err := usecase.NewRelayOutboxUseCase(outbox, publisher, 50, logger).Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "publish events")
		assert.Empty(t, outbox.marked)
	})

	t.Run("nothing pending", func(t *testing.T) {
		publisher := &mockEventPublisher{}
		n, err := usecase.NewRelayOutboxUseCase(&mockOutboxRepository{}, publisher, 0, logger).Execute(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, publisher.published)
	})
}
