package port

import (
	"context"
	"encoding"
	"errors"
	"time"

	"github.com/bibbank/microloan/internal/domain/event"
	"github.com/bibbank/microloan/internal/domain/model"
	"github.com/bibbank/microloan/pkg/events"
)

// Storage failures surfaced by every ledger implementation. Use cases
// translate them into ledger error kinds.
var (
	ErrRecordExists   = errors.New("record already exists")
	ErrRecordNotFound = errors.New("record not found")
)

// ---------------------------------------------------------------------------
// Ledger ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// Reader loads a record by its logical key.
type Reader interface {
	// Load decodes the record stored under key into dst. Returns
	// ErrRecordNotFound if nothing is stored there.
	Load(ctx context.Context, key model.Key, dst encoding.BinaryUnmarshaler) error
}

// Tx is the record set of one transition. Writes become visible only when
// the enclosing Atomically call returns nil.
type Tx interface {
	Reader

	// Create allocates a new record. Returns ErrRecordExists if the key is
	// taken.
	Create(ctx context.Context, key model.Key, rec model.Record) error

	// Store overwrites an existing record.
	Store(ctx context.Context, key model.Key, rec model.Record) error

	// Emit queues domain events for the outbox. They are committed with the
	// records or not at all.
	Emit(evts ...event.DomainEvent)
}

// Ledger is the canonical store of record. It serializes transitions: fn runs
// with exclusive access to the records it touches, and either every write
// and event commits or none does.
type Ledger interface {
	Reader
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Clock is the trusted source of the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// ---------------------------------------------------------------------------
// Outbox ports
// ---------------------------------------------------------------------------

// OutboxRepository stores committed events until they are relayed.
type OutboxRepository = events.OutboxRepository

// EventPublisher delivers outbox entries to external consumers.
type EventPublisher = events.Publisher

// OutboxEntry is one committed event awaiting relay.
type OutboxEntry = events.OutboxEntry
