// Package memory provides an in-process ledger for tests and single-node
// development. Records are held in their encoded form so that every read
// and write goes through the same codec as the durable backend.
package memory

import (
	"context"
	"encoding"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/pkg/events"
)

// Ledger implements port.Ledger and port.OutboxRepository. Transitions are
// serialized by a single mutex.
type Ledger struct {
	mu      sync.Mutex
	records map[model.Key][]byte
	outbox  []events.OutboxEntry
}

var (
	_ port.Ledger           = (*Ledger)(nil)
	_ port.OutboxRepository = (*Ledger)(nil)
)

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[model.Key][]byte)}
}

// Load decodes the committed record under key.
func (l *Ledger) Load(_ context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	l.mu.Lock()
	data, ok := l.records[key]
	l.mu.Unlock()
	if !ok {
		return port.ErrRecordNotFound
	}
	return dst.UnmarshalBinary(data)
}

// Atomically runs fn against a private copy of the records and swaps it in,
// along with the emitted events, only if fn succeeds.
func (l *Ledger) Atomically(ctx context.Context, fn func(tx port.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ledgerTx{records: maps.Clone(l.records)}
	if err := fn(tx); err != nil {
		return err
	}

	entries, err := tx.batch.Drain()
	if err != nil {
		return err
	}

	l.records = tx.records
	l.outbox = append(l.outbox, entries...)
	return nil
}

// Store appends entries to the outbox directly.
func (l *Ledger) Store(_ context.Context, entries []events.OutboxEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outbox = append(l.outbox, entries...)
	return nil
}

// FetchUnpublished returns up to batchSize pending entries in commit order.
func (l *Ledger) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []events.OutboxEntry
	for _, e := range l.outbox {
		if e.Published() {
			continue
		}
		out = append(out, e)
		if len(out) == batchSize {
			break
		}
	}
	return out, nil
}

// MarkPublished stamps the given entries as delivered.
func (l *Ledger) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	now := time.Now().UTC()
	for i := range l.outbox {
		if _, ok := pending[l.outbox[i].ID]; ok {
			l.outbox[i].PublishedAt = &now
		}
	}
	return nil
}

type ledgerTx struct {
	records map[model.Key][]byte
	batch   events.Batch
}

func (t *ledgerTx) Load(_ context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	data, ok := t.records[key]
	if !ok {
		return port.ErrRecordNotFound
	}
	return dst.UnmarshalBinary(data)
}

func (t *ledgerTx) Create(_ context.Context, key model.Key, rec model.Record) error {
	if _, ok := t.records[key]; ok {
		return port.ErrRecordExists
	}
	return t.put(key, rec)
}

func (t *ledgerTx) Store(_ context.Context, key model.Key, rec model.Record) error {
	if _, ok := t.records[key]; !ok {
		return port.ErrRecordNotFound
	}
	return t.put(key, rec)
}

func (t *ledgerTx) Emit(evts ...event.DomainEvent) {
	t.batch.Record(evts...)
}

func (t *ledgerTx) put(key model.Key, rec model.Record) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	t.records[key] = data
	return nil
}
