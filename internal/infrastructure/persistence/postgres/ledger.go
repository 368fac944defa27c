package postgres

import (
	"context"
	"encoding"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/pkg/events"
	pkgpostgres "github.com/bibbank/microloan/pkg/postgres"
)

// Ledger implements port.Ledger on a single table of encoded records. A
// transition runs in one database transaction; every record it loads is
// locked FOR UPDATE, which serializes transitions over the same records.
// Emitted events are written to the outbox table in the same transaction.
type Ledger struct {
	pool *pgxpool.Pool
}

var _ port.Ledger = (*Ledger)(nil)

// NewLedger creates a PostgreSQL-backed ledger.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Load reads the latest committed record without locking.
func (l *Ledger) Load(ctx context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	return loadRecord(ctx, l.pool, key, dst, `SELECT data FROM ledger_records WHERE key = $1`)
}

// Atomically runs fn in a database transaction.
func (l *Ledger) Atomically(ctx context.Context, fn func(tx port.Tx) error) error {
	return pkgpostgres.WithTransaction(ctx, l.pool, func(tx pgx.Tx) error {
		lt := &ledgerTx{q: tx}
		if err := fn(lt); err != nil {
			return err
		}

		entries, err := lt.batch.Drain()
		if err != nil {
			return err
		}
		return insertOutbox(ctx, tx, entries)
	})
}

type ledgerTx struct {
	q     pkgpostgres.Querier
	batch events.Batch
}

func (t *ledgerTx) Load(ctx context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	return loadRecord(ctx, t.q, key, dst, `SELECT data FROM ledger_records WHERE key = $1 FOR UPDATE`)
}

// Create uses ON CONFLICT DO NOTHING so that a taken key does not abort the
// surrounding transaction.
func (t *ledgerTx) Create(ctx context.Context, key model.Key, rec model.Record) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tag, err := t.q.Exec(ctx, `
		INSERT INTO ledger_records (key, kind, version, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`, string(key), int16(data[0]), int16(data[1]), data)
	if err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrRecordExists
	}
	return nil
}

func (t *ledgerTx) Store(ctx context.Context, key model.Key, rec model.Record) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	tag, err := t.q.Exec(ctx, `
		UPDATE ledger_records
		SET data = $2, version = $3, updated_at = now()
		WHERE key = $1
	`, string(key), data, int16(data[1]))
	if err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrRecordNotFound
	}
	return nil
}

func (t *ledgerTx) Emit(evts ...event.DomainEvent) {
	t.batch.Record(evts...)
}

func loadRecord(ctx context.Context, q pkgpostgres.Querier, key model.Key, dst encoding.BinaryUnmarshaler, query string) error {
	var data []byte
	if err := q.QueryRow(ctx, query, string(key)).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.ErrRecordNotFound
		}
		return fmt.Errorf("select %s: %w", key, err)
	}
	if err := dst.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
