package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/port"
)

// RelayOutboxUseCase moves committed events from the outbox to the broker.
// Delivery is at least once: an entry is marked only after the broker
// accepted it.
type RelayOutboxUseCase struct {
	outbox    port.OutboxRepository
	publisher port.EventPublisher
	batchSize int
	logger    *slog.Logger
}

// NewRelayOutboxUseCase wires dependencies.
func NewRelayOutboxUseCase(
	outbox port.OutboxRepository,
	publisher port.EventPublisher,
	batchSize int,
	logger *slog.Logger,
) *RelayOutboxUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RelayOutboxUseCase{outbox: outbox, publisher: publisher, batchSize: batchSize, logger: logger}
}

// Execute relays one batch and returns the number of entries published.
func (uc *RelayOutboxUseCase) Execute(ctx context.Context) (int, error) {
	// 1. Fetch pending entries.
	entries, err := uc.outbox.FetchUnpublished(ctx, uc.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	// 2. Publish them in order.
	if err := uc.publisher.Publish(ctx, entries...); err != nil {
		return 0, fmt.Errorf("publish events: %w", err)
	}

	// 3. Mark them published.
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := uc.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}
	return len(entries), nil
}

// Run relays batches every interval until ctx is cancelled. A full batch is
// followed immediately by another.
func (uc *RelayOutboxUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := uc.Execute(ctx)
		if err != nil && ctx.Err() == nil {
			uc.logger.Error("outbox relay failed", "error", err)
		}
		if n == uc.batchSize {
			continue
		}
		if n > 0 {
			uc.logger.Debug("relayed outbox events", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
