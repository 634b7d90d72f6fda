package model

import (
	"encoding/json"
	"time"
)

// EmptyObject is the default value for every opaque JSON payload.
var EmptyObject = json.RawMessage(`{}`)

// AgentRecord is the registry's view of a single agent. It is replaced
// wholesale on every contact; fields are never merged.
type AgentRecord struct {
	AgentID  string          `json:"agent_id"`
	LastSeen time.Time       `json:"last_seen"`
	Status   string          `json:"status"`
	Info     json.RawMessage `json:"info"`
	Version  string          `json:"version"`
}

// OrEmpty returns raw, or EmptyObject when raw is missing, JSON null, or
// not valid JSON.
func OrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" || !json.Valid(raw) {
		return EmptyObject
	}
	return raw
}
