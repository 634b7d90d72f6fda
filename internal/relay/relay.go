// Package relay composes the agent registry, the command mailbox and the
// report buffer behind the operations used by agents and the console.
//
// Service holds no global state: construct one with New, hand it to the
// transport layer, and Close it on shutdown. No method blocks or performs
// I/O.
package relay

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/alfredjeanlab/relay/internal/idgen"
	"github.com/alfredjeanlab/relay/internal/mailbox"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/presence"
	"github.com/alfredjeanlab/relay/internal/reports"
)

// Service is the relay's in-memory coordination state.
type Service struct {
	registry *presence.Registry
	mailbox  *mailbox.Mailbox
	reports  *reports.Buffer

	now   func() time.Time
	newID func() string

	// contactMu serializes RegisterOrUpdate so that the first-contact check,
	// the record write and the event appends for one contact are never
	// interleaved with another contact.
	contactMu sync.Mutex

	reaperMu sync.Mutex
	reaper   *presence.Reaper
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for last_seen and report
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the report event ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// New returns an empty Service.
func New(opts ...Option) *Service {
	s := &Service{
		registry: presence.New(),
		mailbox:  mailbox.New(),
		reports:  reports.New(),
		now:      time.Now,
		newID:    idgen.ReportID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Contact is the outcome of a single RegisterOrUpdate call.
type Contact struct {
	Record model.AgentRecord
	// New is true when the identifier was unknown before this contact.
	New bool
	// Events are the report events appended for this contact: the
	// new_connection event (if New) followed by the status event.
	Events []model.ReportEvent
}

// RegisterOrUpdate records a contact from an agent. The agent's record is
// replaced wholesale with last_seen set to now. A previously unknown id
// first produces a new_connection event; the status event always follows.
// A nil or JSON-null info is stored as an empty object.
func (s *Service) RegisterOrUpdate(id, status string, info json.RawMessage, version string) Contact {
	info = model.OrEmpty(info)

	s.contactMu.Lock()
	defer s.contactMu.Unlock()

	now := s.now()
	rec := model.AgentRecord{
		AgentID:  id,
		LastSeen: now,
		Status:   status,
		Info:     info,
		Version:  version,
	}
	isNew := s.registry.Touch(rec)

	events := make([]model.ReportEvent, 0, 2)
	if isNew {
		events = append(events, model.ReportEvent{
			ID:        s.newID(),
			AgentID:   id,
			Status:    model.StatusNewConnection,
			Info:      model.EmptyObject,
			Timestamp: now,
		})
	}
	events = append(events, model.ReportEvent{
		ID:        s.newID(),
		AgentID:   id,
		Status:    status,
		Info:      info,
		Timestamp: now,
	})
	s.reports.Append(events...)

	return Contact{Record: rec, New: isNew, Events: events}
}

// ListAgents returns a snapshot of the registry.
func (s *Service) ListAgents() map[string]model.AgentRecord {
	return s.registry.Snapshot()
}

// RemoveAgent deletes id from the registry. It returns false when id was
// not registered. Pending commands and buffered reports are untouched.
func (s *Service) RemoveAgent(id string) bool {
	return s.registry.Remove(id)
}

// EnqueueCommand stores env as the pending command for id, replacing any
// command the agent has not collected yet. id need not be registered. A nil
// env is stored as an envelope with an empty type and data.
func (s *Service) EnqueueCommand(id string, env *model.CommandEnvelope) {
	s.mailbox.Put(id, NormalizeCommand(env))
}

// EnqueueCommandBroadcast enqueues env for every agent registered at call
// time and returns their identifiers. Agents registering afterwards are not
// included.
func (s *Service) EnqueueCommandBroadcast(env *model.CommandEnvelope) []string {
	ids := s.registry.IDs()
	s.mailbox.PutAll(ids, NormalizeCommand(env))
	return ids
}

// DequeueCommand removes and returns the pending command for id, or nil.
func (s *Service) DequeueCommand(id string) *model.CommandEnvelope {
	return s.mailbox.Take(id)
}

// DrainReports returns every buffered report in insertion order and
// empties the buffer atomically.
func (s *Service) DrainReports() []model.ReportEvent {
	return s.reports.Drain()
}

// Sweep removes every agent whose last contact is more than timeout before
// now and returns the removed identifiers.
func (s *Service) Sweep(now time.Time, timeout time.Duration) []string {
	return s.registry.Sweep(now, timeout)
}

// StartReaper runs Sweep on a ticker until Close. onRemoved, if non-nil, is
// called for every evicted agent outside all locks. Calling StartReaper
// again replaces the running reaper.
func (s *Service) StartReaper(cfg presence.ReaperConfig, onRemoved func(id string)) {
	if cfg.Now == nil {
		cfg.Now = s.now
	}
	sweep := func(now time.Time, timeout time.Duration) []string {
		removed := s.Sweep(now, timeout)
		if onRemoved != nil {
			for _, id := range removed {
				onRemoved(id)
			}
		}
		return removed
	}

	s.reaperMu.Lock()
	defer s.reaperMu.Unlock()
	if s.reaper != nil {
		s.reaper.Stop()
	}
	s.reaper = presence.StartReaper(sweep, cfg)
}

// Stats reports the size of each piece of state.
func (s *Service) Stats() model.Stats {
	return model.Stats{
		Status:          "ok",
		Agents:          s.registry.Len(),
		PendingCommands: s.mailbox.Len(),
		BufferedReports: s.reports.Len(),
	}
}

// Close stops the reaper, if one is running. The in-memory state is
// discarded with the Service.
func (s *Service) Close() {
	s.reaperMu.Lock()
	defer s.reaperMu.Unlock()
	if s.reaper != nil {
		s.reaper.Stop()
		s.reaper = nil
	}
}

// NormalizeCommand returns env as the mailbox stores it: a nil envelope
// becomes an empty type with empty data, and missing or malformed data
// becomes {}.
func NormalizeCommand(env *model.CommandEnvelope) *model.CommandEnvelope {
	if env == nil {
		return &model.CommandEnvelope{Data: model.EmptyObject}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" || !json.Valid(env.Data) {
		return &model.CommandEnvelope{Type: env.Type, Data: model.EmptyObject}
	}
	return env
}
