// Package events defines the notifications the relay emits and the
// publishers that carry them.
package events

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/relay/internal/model"
)

// Event topic constants
const (
	TopicAgentConnected   = "relay.agent.connected"
	TopicAgentRemoved     = "relay.agent.removed"
	TopicReport           = "relay.report"
	TopicCommandQueued    = "relay.command.queued"
	TopicCommandDelivered = "relay.command.delivered"
)

// TopicPrefix matches every relay topic when used as a NATS subject
// wildcard root.
const TopicPrefix = "relay"

// MaxInlineBytes is the largest opaque payload (command data, report or
// agent info) copied into an event. Larger payloads are left out and only
// their size is recorded.
const MaxInlineBytes = 4 << 10

// inline returns raw when it fits in an event, or nil and true when it
// has to be left out.
func inline(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) > MaxInlineBytes {
		return nil, true
	}
	return raw, false
}

// Event types

type AgentConnected struct {
	Agent      model.AgentRecord `json:"agent"`
	InfoElided bool              `json:"info_elided,omitempty"`
}

func NewAgentConnected(rec model.AgentRecord) AgentConnected {
	var elided bool
	rec.Info, elided = inline(rec.Info)
	return AgentConnected{Agent: rec, InfoElided: elided}
}

// AgentRemoved is published when an agent leaves the registry. Reason is
// "operator" or "sweep".
type AgentRemoved struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

type Report struct {
	Report     model.ReportEvent `json:"report"`
	InfoBytes  int               `json:"info_bytes"`
	InfoElided bool              `json:"info_elided,omitempty"`
}

func NewReport(ev model.ReportEvent) Report {
	size := len(ev.Info)
	var elided bool
	ev.Info, elided = inline(ev.Info)
	return Report{Report: ev, InfoBytes: size, InfoElided: elided}
}

// CommandSummary describes a command envelope. Data is present only when
// it is at most MaxInlineBytes long; DataBytes is always the full size.
type CommandSummary struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	DataBytes  int             `json:"data_bytes"`
	DataElided bool            `json:"data_elided,omitempty"`
}

func SummarizeCommand(env *model.CommandEnvelope) CommandSummary {
	if env == nil {
		return CommandSummary{}
	}
	data, elided := inline(env.Data)
	return CommandSummary{Type: env.Type, Data: data, DataBytes: len(env.Data), DataElided: elided}
}

// CommandQueued is published once per targeted agent. Broadcast is true
// when the command came from send_command_to_all.
type CommandQueued struct {
	AgentID   string         `json:"agent_id"`
	Command   CommandSummary `json:"command"`
	Broadcast bool           `json:"broadcast,omitempty"`
}

type CommandDelivered struct {
	AgentID string         `json:"agent_id"`
	Command CommandSummary `json:"command"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
