package events

import "fmt"

// Batch buffers the events raised inside one atomic ledger write, in the
// order they were raised.
type Batch struct {
	pending []DomainEvent
}

// Record appends events to the batch.
func (b *Batch) Record(evts ...DomainEvent) {
	b.pending = append(b.pending, evts...)
}

// Len reports how many events are buffered.
func (b *Batch) Len() int { return len(b.pending) }

// Drain converts the buffered events into outbox entries and empties the
// batch. The batch is left untouched when an event fails to encode.
func (b *Batch) Drain() ([]OutboxEntry, error) {
	entries := make([]OutboxEntry, 0, len(b.pending))
	for _, evt := range b.pending {
		entry, err := NewOutboxEntry(evt)
		if err != nil {
			return nil, fmt.Errorf("outbox: %w", err)
		}
		entries = append(entries, entry)
	}
	b.pending = nil
	return entries, nil
}
