package model

import (
	"encoding/json"
	"time"
)

// Event is an audit record of something the relay did, mirroring what is
// published to NATS.
type Event struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	AgentID   string          `json:"agent_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
