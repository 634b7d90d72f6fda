package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/relay/internal/events"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/ui"
)

func init() { ui.ForceNoColor() }

func TestPrintClientsTable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printClientsTable(&buf, map[string]model.AgentRecord{
		"b": {AgentID: "b", Version: "2", Status: "Client is running.", LastSeen: now.Add(-3 * time.Second)},
		"a": {AgentID: "a", Version: "1", Status: "idle", LastSeen: now},
	}, now)

	out := buf.String()
	if strings.Index(out, "a ") > strings.Index(out, "b ") {
		t.Errorf("clients not sorted:\n%s", out)
	}
	if !strings.Contains(out, "3s") || !strings.Contains(out, "2 clients") {
		t.Errorf("unexpected table:\n%s", out)
	}

	buf.Reset()
	printClientsTable(&buf, nil, now)
	if !strings.Contains(buf.String(), "no clients connected") {
		t.Errorf("empty table = %q", buf.String())
	}
}

func TestPrintReportsTable(t *testing.T) {
	var buf bytes.Buffer
	printReportsTable(&buf, []model.ReportEvent{
		{ID: "rpt-1", AgentID: "a", Status: model.StatusNewConnection},
		{ID: "rpt-2", AgentID: "a", Status: model.StatusRunning},
	})
	out := buf.String()
	if !strings.Contains(out, "new_connection") || !strings.Contains(out, "heartbeat") {
		t.Errorf("kinds missing:\n%s", out)
	}
}

func TestPrintEventsTable(t *testing.T) {
	var buf bytes.Buffer
	printEventsTable(&buf, []*model.Event{
		{ID: 7, Topic: events.TopicReport, AgentID: "a", Payload: json.RawMessage(`{"x":1}`)},
	})
	if out := buf.String(); !strings.Contains(out, "relay.report") || !strings.Contains(out, `{"x":1}`) {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestPrintEvent(t *testing.T) {
	at := time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC)
	msg := events.Message{Topic: events.TopicCommandQueued, Data: []byte("{\n  \"agent_id\": \"a\"\n}")}

	var buf bytes.Buffer
	printEvent(&buf, msg, at)
	if got := buf.String(); got != "08:30:00 relay.command.queued {\"agent_id\":\"a\"}\n" {
		t.Errorf("printEvent = %q", got)
	}

	jsonOutput = true
	t.Cleanup(func() { jsonOutput = false })
	buf.Reset()
	printEvent(&buf, msg, at)
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output not valid: %v (%q)", err, buf.String())
	}
	if decoded["topic"] != events.TopicCommandQueued {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestParseCommandArgs(t *testing.T) {
	env, err := parseCommandArgs("get-info", nil)
	if err != nil || env.Type != "get-info" || string(env.Data) != "{}" {
		t.Fatalf("no data: env=%+v err=%v", env, err)
	}

	env, err = parseCommandArgs("list-files", []string{`{"path":"/tmp"}`})
	if err != nil || string(env.Data) != `{"path":"/tmp"}` {
		t.Fatalf("with data: env=%+v err=%v", env, err)
	}

	env, err = parseCommandArgs("x", []string{"null"})
	if err != nil || string(env.Data) != "{}" {
		t.Fatalf("null data: env=%+v err=%v", env, err)
	}

	if _, err := parseCommandArgs("x", []string{"{bad"}); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := parseCommandArgs("", nil); err == nil {
		t.Error("expected error for empty type")
	}
}
