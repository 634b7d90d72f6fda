package model

import (
	"encoding/json"
	"testing"
)

func TestReportEventKind(t *testing.T) {
	tests := []struct {
		status string
		want   ReportKind
	}{
		{StatusNewConnection, KindNewConnection},
		{StatusRunning, KindHeartbeat},
		{"lan-scan-complete", KindLANScan},
		{"system-info-complete", KindSystemInfo},
		{"file-list-complete", KindFileList},
		{"file-transfer-complete", KindFileTransfer},
		{"script-output", KindScriptOutput},
		{"wallpaper-change-complete", KindWallpaperChanged},
		{"wallpaper-change-error", KindWallpaperError},
		{"", KindOther},
		{"other", KindOther},
		{"heartbeat", KindOther},
		{"Client is running", KindOther},
	}
	for _, tt := range tests {
		e := &ReportEvent{Status: tt.status}
		if got := e.Kind(); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestReportEventDecodeInfo(t *testing.T) {
	tests := []struct {
		name string
		info string
		want int
	}{
		{"object", `{"a":1,"b":"x"}`, 2},
		{"empty", ``, 0},
		{"null", `null`, 0},
		{"array", `[1,2]`, 0},
		{"garbage", `{nope`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ReportEvent{Info: json.RawMessage(tt.info)}
			got := e.DecodeInfo()
			if got == nil {
				t.Fatal("DecodeInfo returned nil map")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d (%v)", len(got), tt.want, got)
			}
		})
	}
}
