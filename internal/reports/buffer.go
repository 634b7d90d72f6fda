// Package reports buffers agent status reports until the console collects
// them.
package reports

import (
	"sync"

	"github.com/alfredjeanlab/relay/internal/model"
)

// Buffer is an unbounded FIFO of report events. Every appended event is
// returned by exactly one Drain. All methods are safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	events []model.ReportEvent
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds events to the tail in the order given. Events passed in one
// call are always adjacent and always land in the same Drain.
func (b *Buffer) Append(events ...model.ReportEvent) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, events...)
	b.mu.Unlock()
}

// Drain returns every buffered event in insertion order and empties the
// buffer in the same critical section. It never returns nil.
func (b *Buffer) Drain() []model.ReportEvent {
	b.mu.Lock()
	out := b.events
	b.events = nil
	b.mu.Unlock()

	if out == nil {
		return []model.ReportEvent{}
	}
	return out
}

// Len returns the number of events waiting to be drained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
