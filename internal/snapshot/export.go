package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	AgentCount int       `json:"agent_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes a header line followed by one "agent" line per
// registered agent, sorted by agent ID. It returns the number of agents
// written.
func ExportJSONL(roster Roster, now time.Time, w io.Writer) (int, error) {
	agents := roster.ListAgents()
	ids := make([]string, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:    "1",
		Type:       "header",
		Timestamp:  now,
		AgentCount: len(ids),
	}); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}

	for _, id := range ids {
		if err := enc.Encode(record{Type: "agent", Data: agents[id]}); err != nil {
			return 0, fmt.Errorf("encode agent %s: %w", id, err)
		}
	}
	return len(ids), nil
}
