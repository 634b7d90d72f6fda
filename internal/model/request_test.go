package model

import (
	"encoding/json"
	"testing"
)

func TestReportRequestAliases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		id      string
		payload string
	}{
		{"current fields", `{"agent_id":"a","status":"s","info":{"x":1}}`, "a", `{"x":1}`},
		{"legacy fields", `{"client_ip":"10.0.0.2","status":"s","data":{"y":2}}`, "10.0.0.2", `{"y":2}`},
		{"agent_id wins", `{"agent_id":"a","client_ip":"b"}`, "a", `{}`},
		{"info wins", `{"info":{"x":1},"data":{"y":2}}`, "", `{"x":1}`},
		{"null info falls back", `{"info":null,"data":{"y":2}}`, "", `{"y":2}`},
		{"nothing", `{}`, "", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ReportRequest
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatal(err)
			}
			if got := r.ID(); got != tt.id {
				t.Errorf("ID = %q, want %q", got, tt.id)
			}
			if got := string(r.Payload()); got != tt.payload {
				t.Errorf("Payload = %s, want %s", got, tt.payload)
			}
		})
	}
}

func TestSendCommandRequestID(t *testing.T) {
	r := SendCommandRequest{ClientIP: "10.0.0.3"}
	if r.ID() != "10.0.0.3" {
		t.Errorf("legacy ID = %q", r.ID())
	}
	r.AgentID = "a"
	if r.ID() != "a" {
		t.Errorf("ID = %q", r.ID())
	}
}
