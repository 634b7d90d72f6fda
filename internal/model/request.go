package model

import "encoding/json"

// ReportRequest is the body of an agent status report. ClientIP and Data
// are legacy aliases accepted from older agents.
type ReportRequest struct {
	AgentID  string          `json:"agent_id,omitempty"`
	ClientIP string          `json:"client_ip,omitempty"`
	Status   string          `json:"status"`
	Info     json.RawMessage `json:"info,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Version  string          `json:"version"`
}

// ID returns the reporting agent's identifier, preferring agent_id.
func (r *ReportRequest) ID() string {
	if r.AgentID != "" {
		return r.AgentID
	}
	return r.ClientIP
}

// Payload returns the report payload, preferring info over data.
func (r *ReportRequest) Payload() json.RawMessage {
	if len(r.Info) > 0 && string(r.Info) != "null" && json.Valid(r.Info) {
		return r.Info
	}
	return OrEmpty(r.Data)
}

// SendCommandRequest queues a command for one agent.
type SendCommandRequest struct {
	AgentID  string           `json:"agent_id,omitempty"`
	ClientIP string           `json:"client_ip,omitempty"`
	Command  *CommandEnvelope `json:"command"`
}

// ID returns the target agent's identifier, preferring agent_id.
func (r *SendCommandRequest) ID() string {
	if r.AgentID != "" {
		return r.AgentID
	}
	return r.ClientIP
}

// BroadcastRequest queues a command for every registered agent.
type BroadcastRequest struct {
	Command *CommandEnvelope `json:"command"`
}

// CommandResponse is returned to a polling agent.
type CommandResponse struct {
	Command *CommandEnvelope `json:"command"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
	Queued  int    `json:"queued,omitempty"`
}

// Stats summarises the relay's in-memory state.
type Stats struct {
	Status          string `json:"status"`
	Agents          int    `json:"agents"`
	PendingCommands int    `json:"pending_commands"`
	BufferedReports int    `json:"buffered_reports"`
}
