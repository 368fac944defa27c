package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes entries to the event_index table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Index inserts e; a redelivered event is ignored.
func (s *PostgresStore) Index(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO event_index (event_id, event_type, aggregate_type, aggregate_id, borrower, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.AggregateType, e.AggregateID, e.Borrower, e.OccurredAt, e.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert event_index: %w", err)
	}
	return nil
}

// CountByBorrower returns how many indexed events concern borrower.
func (s *PostgresStore) CountByBorrower(ctx context.Context, borrower uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM event_index WHERE borrower = $1`, borrower).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count event_index: %w", err)
	}
	return n, nil
}
