package model

import (
	"encoding/json"
	"time"
)

// StatusNewConnection is the synthetic status emitted on first contact.
const StatusNewConnection = "new_connection"

// StatusRunning is the routine heartbeat status sent by idle agents.
const StatusRunning = "Client is running."

// ReportEvent is a single buffered status report.
type ReportEvent struct {
	ID        string          `json:"id"`
	AgentID   string          `json:"agent_id"`
	Status    string          `json:"status"`
	Info      json.RawMessage `json:"info"`
	Timestamp time.Time       `json:"timestamp"`
}

// ReportKind classifies a report by its status string.
type ReportKind string

const (
	KindNewConnection    ReportKind = "new_connection"
	KindHeartbeat        ReportKind = "heartbeat"
	KindLANScan          ReportKind = "lan-scan-complete"
	KindSystemInfo       ReportKind = "system-info-complete"
	KindFileList         ReportKind = "file-list-complete"
	KindFileTransfer     ReportKind = "file-transfer-complete"
	KindScriptOutput     ReportKind = "script-output"
	KindWallpaperChanged ReportKind = "wallpaper-change-complete"
	KindWallpaperError   ReportKind = "wallpaper-change-error"
	KindOther            ReportKind = "other"
)

// Kind maps the free-form status onto a ReportKind. Unrecognized
// statuses map to KindOther; the caller keeps the raw status and payload.
func (e *ReportEvent) Kind() ReportKind {
	switch e.Status {
	case StatusNewConnection:
		return KindNewConnection
	case StatusRunning:
		return KindHeartbeat
	}
	switch k := ReportKind(e.Status); k {
	case KindLANScan, KindSystemInfo, KindFileList, KindFileTransfer,
		KindScriptOutput, KindWallpaperChanged, KindWallpaperError:
		return k
	}
	return KindOther
}

// DecodeInfo unmarshals the report payload into a generic map. A payload
// that is not a JSON object yields an empty map.
func (e *ReportEvent) DecodeInfo() map[string]any {
	m := map[string]any{}
	if len(e.Info) > 0 {
		_ = json.Unmarshal(e.Info, &m)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}
