// Package mailbox holds at most one pending command per agent.
//
// Writes replace any unconsumed entry and reads remove it, so a command
// queued for an agent can be cancelled only by overwriting it before the
// agent polls.
package mailbox

import (
	"sync"

	"github.com/alfredjeanlab/relay/internal/model"
)

// Mailbox is a set of single-slot per-agent command boxes. It is
// independent of registry membership. All methods are safe for concurrent
// use.
type Mailbox struct {
	mu      sync.Mutex
	pending map[string]*model.CommandEnvelope
}

// New creates an empty mailbox.
func New() *Mailbox {
	return &Mailbox{pending: make(map[string]*model.CommandEnvelope)}
}

// Put stores env for id, replacing anything not yet taken.
func (m *Mailbox) Put(id string, env *model.CommandEnvelope) {
	m.mu.Lock()
	m.pending[id] = env
	m.mu.Unlock()
}

// PutAll stores env for every id.
func (m *Mailbox) PutAll(ids []string, env *model.CommandEnvelope) {
	m.mu.Lock()
	for _, id := range ids {
		m.pending[id] = env
	}
	m.mu.Unlock()
}

// Take removes and returns the entry for id, or nil if there is none.
// Concurrent Takes for the same id never both receive the same envelope.
func (m *Mailbox) Take(id string) *model.CommandEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.pending[id]
	if !ok {
		return nil
	}
	delete(m.pending, id)
	return env
}

// Len returns the number of agents with a pending command.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
