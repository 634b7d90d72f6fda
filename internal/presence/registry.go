// Package presence tracks which agents are alive.
//
// The Registry holds one record per agent identifier, replaced wholesale on
// every contact. Liveness is enforced by Sweep, which evicts agents whose
// last contact is older than a timeout. Sweep is normally driven from the
// operator console; the relay can also run it on a ticker via Reaper.
package presence

import (
	"sort"
	"sync"

	"github.com/alfredjeanlab/relay/internal/model"
)

// Registry maps agent identifiers to their latest self-reported record.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]model.AgentRecord
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]model.AgentRecord)}
}

// Touch inserts or replaces the record for rec.AgentID. It reports whether
// the identifier was unknown before the call; the check and the write
// happen under the same lock.
func (r *Registry) Touch(rec model.AgentRecord) (isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.agents[rec.AgentID]
	r.agents[rec.AgentID] = rec
	return !known
}

// Get returns the record for id.
func (r *Registry) Get(id string) (model.AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[id]
	return rec, ok
}

// Snapshot returns a copy of every record at call time. Later mutations of
// the registry are not reflected in the returned map.
func (r *Registry) Snapshot() map[string]model.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]model.AgentRecord, len(r.agents))
	for id, rec := range r.agents {
		out[id] = rec
	}
	return out
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Remove deletes id. It returns false if id was not present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[id]; !ok {
		return false
	}
	delete(r.agents, id)
	return true
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
