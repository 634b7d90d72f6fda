package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/presence"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeClock) {
	clock := &fakeClock{now: t0}
	var seq atomic.Int64
	s := New(
		WithClock(clock.Now),
		WithIDGenerator(func() string { return fmt.Sprintf("rpt-%d", seq.Add(1)) }),
	)
	return s, clock
}

func command(typ string) *model.CommandEnvelope {
	return &model.CommandEnvelope{Type: typ, Data: json.RawMessage(`{}`)}
}

func TestRegisterOrUpdate_FirstContactScenario(t *testing.T) {
	s, _ := newTestService()

	c := s.RegisterOrUpdate("10.0.0.5", "Client is running.", json.RawMessage(`{}`), "v1")
	if !c.New {
		t.Error("first contact should be reported as new")
	}

	got := s.DrainReports()
	if len(got) != 2 {
		t.Fatalf("DrainReports() returned %d events, want 2", len(got))
	}
	if got[0].AgentID != "10.0.0.5" || got[0].Status != model.StatusNewConnection || string(got[0].Info) != `{}` {
		t.Errorf("event 0 = %+v, want new_connection for 10.0.0.5 with {}", got[0])
	}
	if got[1].AgentID != "10.0.0.5" || got[1].Status != "Client is running." || string(got[1].Info) != `{}` {
		t.Errorf("event 1 = %+v, want status report for 10.0.0.5 with {}", got[1])
	}

	if again := s.DrainReports(); len(again) != 0 {
		t.Errorf("second DrainReports() = %v, want []", again)
	}
}

func TestRegisterOrUpdate_SecondContactNoSyntheticEvent(t *testing.T) {
	s, clock := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")
	s.DrainReports()

	clock.Set(t0.Add(3 * time.Second))
	c := s.RegisterOrUpdate("a", "still up", json.RawMessage(`{"k":1}`), "v2")
	if c.New {
		t.Error("second contact reported as new")
	}

	got := s.DrainReports()
	if len(got) != 1 || got[0].Status != "still up" {
		t.Fatalf("DrainReports() = %+v, want only the status event", got)
	}

	rec := s.ListAgents()["a"]
	if !rec.LastSeen.Equal(t0.Add(3*time.Second)) || rec.Version != "v2" || string(rec.Info) != `{"k":1}` {
		t.Errorf("record = %+v, want replaced record", rec)
	}
}

func TestRegisterOrUpdate_DefaultsMissingInfo(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "", nil, "")
	s.RegisterOrUpdate("b", "", json.RawMessage("null"), "")

	for _, id := range []string{"a", "b"} {
		if info := string(s.ListAgents()[id].Info); info != `{}` {
			t.Errorf("agent %s info = %s, want {}", id, info)
		}
	}
	for _, e := range s.DrainReports() {
		if string(e.Info) != `{}` {
			t.Errorf("event %+v info = %s, want {}", e, e.Info)
		}
	}
}

func TestRegisterOrUpdate_LastSeenNotBeforeCreation(t *testing.T) {
	s, clock := newTestService()
	c := s.RegisterOrUpdate("a", "up", nil, "v1")
	clock.Set(t0.Add(time.Minute))
	s.RegisterOrUpdate("a", "up", nil, "v1")

	if rec := s.ListAgents()["a"]; rec.LastSeen.Before(c.Record.LastSeen) {
		t.Errorf("last_seen %v went backwards from %v", rec.LastSeen, c.Record.LastSeen)
	}
}

func TestRemoveAgent(t *testing.T) {
	s, _ := newTestService()
	if s.RemoveAgent("ghost") {
		t.Error("RemoveAgent(ghost) = true, want not found")
	}
	if s.RemoveAgent("ghost") {
		t.Error("RemoveAgent(ghost) not idempotent")
	}

	s.RegisterOrUpdate("a", "up", nil, "v1")
	if !s.RemoveAgent("a") {
		t.Error("RemoveAgent(a) = false, want removed")
	}
	if _, ok := s.ListAgents()["a"]; ok {
		t.Error("agent a still listed after removal")
	}
}

func TestRemoveAgent_KeepsMailboxAndReports(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")
	s.EnqueueCommand("a", command(model.CommandGetInfo))

	s.RemoveAgent("a")

	if got := s.DequeueCommand("a"); got == nil || got.Type != model.CommandGetInfo {
		t.Errorf("pending command lost on removal: %v", got)
	}
	if got := s.DrainReports(); len(got) != 2 {
		t.Errorf("buffered reports lost on removal: %d events", len(got))
	}
}

func TestRemoveAgent_RecontactIsNewConnection(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")
	s.DrainReports()
	s.RemoveAgent("a")

	c := s.RegisterOrUpdate("a", "back", nil, "v1")
	if !c.New {
		t.Error("re-contact after removal should be new")
	}
	got := s.DrainReports()
	if len(got) != 2 || got[0].Status != model.StatusNewConnection || got[1].Status != "back" {
		t.Errorf("DrainReports() = %+v, want new_connection then back", got)
	}
}

func TestEnqueueDequeue(t *testing.T) {
	s, _ := newTestService()
	e := command(model.CommandLANPrint)

	s.EnqueueCommand("a", e)
	if got := s.DequeueCommand("a"); got != e {
		t.Errorf("DequeueCommand(a) = %v, want %v", got, e)
	}
	if got := s.DequeueCommand("a"); got != nil {
		t.Errorf("second DequeueCommand(a) = %v, want nil", got)
	}
}

func TestEnqueueCommand_UnknownAgent(t *testing.T) {
	s, _ := newTestService()
	s.EnqueueCommand("not-registered", command(model.CommandGetInfo))

	if got := s.DequeueCommand("not-registered"); got == nil {
		t.Error("command for unregistered agent was dropped")
	}
}

func TestRegisterOrUpdate_MalformedInfoStaysEncodable(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "s", json.RawMessage(`{bad`), "v")

	if info := string(s.ListAgents()["a"].Info); info != `{}` {
		t.Errorf("agent info = %s, want {}", info)
	}
	events := s.DrainReports()
	if len(events) != 2 {
		t.Fatalf("drained %d events, want 2", len(events))
	}
	for _, e := range events {
		if string(e.Info) != `{}` {
			t.Errorf("event %+v info = %s, want {}", e, e.Info)
		}
	}
	if _, err := json.Marshal(events); err != nil {
		t.Fatalf("marshal drained events: %v", err)
	}
	if _, err := json.Marshal(s.ListAgents()); err != nil {
		t.Fatalf("marshal agents: %v", err)
	}
}

func TestEnqueueCommand_MalformedDataDefaults(t *testing.T) {
	s, _ := newTestService()
	s.EnqueueCommand("a", &model.CommandEnvelope{Type: "t", Data: json.RawMessage(`{bad`)})

	got := s.DequeueCommand("a")
	if got == nil || got.Type != "t" || string(got.Data) != `{}` {
		t.Fatalf("DequeueCommand(a) = %+v, want type t with {}", got)
	}
}

func TestEnqueueCommand_NilDefaults(t *testing.T) {
	s, _ := newTestService()
	s.EnqueueCommand("a", nil)

	got := s.DequeueCommand("a")
	if got == nil {
		t.Fatal("DequeueCommand(a) = nil, want defaulted envelope")
	}
	if got.Type != "" || string(got.Data) != `{}` {
		t.Errorf("defaulted envelope = %+v", got)
	}
}

func TestEnqueueCommandBroadcast_Snapshot(t *testing.T) {
	s, _ := newTestService()
	for _, id := range []string{"a", "b", "c"} {
		s.RegisterOrUpdate(id, "up", nil, "v1")
	}

	e := command(model.CommandLANPrintAll)
	ids := s.EnqueueCommandBroadcast(e)
	if len(ids) != 3 {
		t.Errorf("broadcast reached %v, want 3 agents", ids)
	}

	s.RegisterOrUpdate("d", "up", nil, "v1")

	for _, id := range []string{"a", "b", "c"} {
		if got := s.DequeueCommand(id); got != e {
			t.Errorf("DequeueCommand(%s) = %v, want broadcast envelope", id, got)
		}
	}
	if got := s.DequeueCommand("d"); got != nil {
		t.Errorf("late agent d received %v from earlier broadcast", got)
	}
}

func TestSweep(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")

	if removed := s.Sweep(t0.Add(24*time.Second), presence.DefaultTimeout); len(removed) != 0 {
		t.Errorf("Sweep at t=24 removed %v", removed)
	}
	if _, ok := s.ListAgents()["a"]; !ok {
		t.Fatal("agent removed at t=24")
	}

	removed := s.Sweep(t0.Add(26*time.Second), presence.DefaultTimeout)
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("Sweep at t=26 removed %v, want [a]", removed)
	}
	if _, ok := s.ListAgents()["a"]; ok {
		t.Error("agent still present at t=26")
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")
	s.EnqueueCommand("a", command(model.CommandGetInfo))
	s.EnqueueCommand("b", command(model.CommandGetInfo))

	st := s.Stats()
	if st.Agents != 1 || st.PendingCommands != 2 || st.BufferedReports != 2 || st.Status != "ok" {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestStartReaper_CallsOnRemoved(t *testing.T) {
	s, clock := newTestService()
	s.RegisterOrUpdate("a", "up", nil, "v1")
	clock.Set(t0.Add(time.Minute))

	removed := make(chan string, 1)
	s.StartReaper(presence.ReaperConfig{Interval: 10 * time.Millisecond}, func(id string) {
		removed <- id
	})
	defer s.Close()

	select {
	case id := <-removed:
		if id != "a" {
			t.Errorf("onRemoved(%q), want a", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not remove stale agent")
	}
}

func TestClose_WithoutReaper(t *testing.T) {
	s, _ := newTestService()
	s.Close()
	s.Close()
}

// N contacts interleaved with drains: every event appears in exactly one
// drain and the total is N plus the number of first contacts.
func TestConcurrentContactsAndDrains(t *testing.T) {
	s, _ := newTestService()
	const (
		agents   = 20
		contacts = 50
	)

	var wg sync.WaitGroup
	for a := 0; a < agents; a++ {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			id := fmt.Sprintf("agent-%d", a)
			for i := 0; i < contacts; i++ {
				s.RegisterOrUpdate(id, fmt.Sprintf("%d", i), nil, "v1")
			}
		}(a)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var all []model.ReportEvent
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			all = append(all, s.DrainReports()...)
		}
	}
	all = append(all, s.DrainReports()...)

	if want := agents*contacts + agents; len(all) != want {
		t.Fatalf("drained %d events, want %d", len(all), want)
	}

	seen := make(map[string]bool, len(all))
	firstIdx := make(map[string]int)
	for i, e := range all {
		if seen[e.ID] {
			t.Fatalf("event %s drained twice", e.ID)
		}
		seen[e.ID] = true
		if e.Status == model.StatusNewConnection {
			if _, dup := firstIdx[e.AgentID]; dup {
				t.Fatalf("duplicate new_connection for %s", e.AgentID)
			}
			firstIdx[e.AgentID] = i
		}
	}

	for id, idx := range firstIdx {
		// Synthetic event is immediately followed by that contact's status,
		// and nothing for this agent precedes it.
		if idx+1 >= len(all) || all[idx+1].AgentID != id || all[idx+1].Status != "0" {
			t.Errorf("new_connection for %s not followed by its first status", id)
		}
		for _, e := range all[:idx] {
			if e.AgentID == id {
				t.Errorf("event for %s drained before its new_connection", id)
				break
			}
		}
	}
	if len(firstIdx) != agents {
		t.Errorf("%d new_connection events, want %d", len(firstIdx), agents)
	}
}
