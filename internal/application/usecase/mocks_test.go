package usecase_test

import (
	"context"
	"encoding"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/internal/domain/port"
	"github.com/bibbank/microloan/pkg/events"
)

// mockLedger keeps encoded records in a map and applies a transition's
// writes only when it succeeds.
type mockLedger struct {
	records    map[model.Key][]byte
	emitted    []event.DomainEvent
	createFunc func(key model.Key) error
	storeFunc  func(key model.Key) error
}

func newMockLedger() *mockLedger {
	return &mockLedger{records: map[model.Key][]byte{}}
}

func (m *mockLedger) Load(_ context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	return load(m.records, key, dst)
}

func (m *mockLedger) Atomically(_ context.Context, fn func(tx port.Tx) error) error {
	tx := &mockTx{ledger: m, records: maps.Clone(m.records)}
	if err := fn(tx); err != nil {
		return err
	}
	m.records = tx.records
	m.emitted = append(m.emitted, tx.emitted...)
	return nil
}

// seed stores a record directly, bypassing transitions.
func (m *mockLedger) seed(key model.Key, rec model.Record) {
	data, err := rec.MarshalBinary()
	if err != nil {
		panic(err)
	}
	m.records[key] = data
}

func (m *mockLedger) lastEventType() string {
	if len(m.emitted) == 0 {
		return ""
	}
	return m.emitted[len(m.emitted)-1].EventType()
}

type mockTx struct {
	ledger  *mockLedger
	records map[model.Key][]byte
	emitted []event.DomainEvent
}

func (t *mockTx) Load(_ context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error {
	return load(t.records, key, dst)
}

func (t *mockTx) Create(_ context.Context, key model.Key, rec model.Record) error {
	if t.ledger.createFunc != nil {
		if err := t.ledger.createFunc(key); err != nil {
			return err
		}
	}
	if _, ok := t.records[key]; ok {
		return port.ErrRecordExists
	}
	return t.put(key, rec)
}

func (t *mockTx) Store(_ context.Context, key model.Key, rec model.Record) error {
	if t.ledger.storeFunc != nil {
		if err := t.ledger.storeFunc(key); err != nil {
			return err
		}
	}
	if _, ok := t.records[key]; !ok {
		return port.ErrRecordNotFound
	}
	return t.put(key, rec)
}

func (t *mockTx) Emit(evts ...event.DomainEvent) {
	t.emitted = append(t.emitted, evts...)
}

func (t *mockTx) put(key model.Key, rec model.Record) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	t.records[key] = data
	return nil
}

func load(records map[model.Key][]byte, key model.Key, dst encoding.BinaryUnmarshaler) error {
	data, ok := records[key]
	if !ok {
		return port.ErrRecordNotFound
	}
	return dst.UnmarshalBinary(data)
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type mockOutboxRepository struct {
	fetchFunc  func(ctx context.Context, batchSize int) ([]events.OutboxEntry, error)
	marked     []uuid.UUID
	markedFunc func(ctx context.Context, ids []uuid.UUID) error
}

func (m *mockOutboxRepository) Store(_ context.Context, _ []events.OutboxEntry) error {
	return nil
}

func (m *mockOutboxRepository) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, batchSize)
	}
	return nil, nil
}

func (m *mockOutboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if m.markedFunc != nil {
		return m.markedFunc(ctx, ids)
	}
	m.marked = append(m.marked, ids...)
	return nil
}

type mockEventPublisher struct {
	publishFunc func(ctx context.Context, entries ...events.OutboxEntry) error
	published   []events.OutboxEntry
}

func (m *mockEventPublisher) Publish(ctx context.Context, entries ...events.OutboxEntry) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, entries...)
	}
	m.published = append(m.published, entries...)
	return nil
}
