package config

import (
	"os"
	"testing"
	"time"
)

var relayEnvVars = []string{
	"RELAY_HTTP_ADDR", "RELAY_NATS_URL", "RELAY_SWEEP_INTERVAL",
	"RELAY_INACTIVITY_TIMEOUT", "RELAY_AUDIT_DATABASE_URL",
	"RELAY_SNAPSHOT_INTERVAL", "RELAY_SNAPSHOT_S3_BUCKET", "RELAY_SNAPSHOT_S3_ENDPOINT",
	"RELAY_SNAPSHOT_S3_REGION", "RELAY_SNAPSHOT_S3_KEY", "RELAY_SNAPSHOT_FILE",
}

// clearAllEnv blanks every relay variable and unsets RELAY_GRPC_ADDR, whose
// empty value is meaningful.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range relayEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("RELAY_GRPC_ADDR", "")
	os.Unsetenv("RELAY_GRPC_ADDR")
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Errorf("HTTPAddr = %q, want :5000", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want :9090", cfg.GRPCAddr)
	}
	if cfg.NATSURL != "" || cfg.AuditDatabaseURL != "" {
		t.Errorf("optional sinks should be disabled: %+v", cfg)
	}
	if cfg.SweepInterval != 0 {
		t.Errorf("SweepInterval = %v, want 0", cfg.SweepInterval)
	}
	if cfg.InactivityTimeout != 25*time.Second {
		t.Errorf("InactivityTimeout = %v, want 25s", cfg.InactivityTimeout)
	}
	if cfg.SnapshotInterval != 0 || cfg.SnapshotS3Region != "us-east-1" || cfg.SnapshotS3Key != "relay/agents.jsonl" {
		t.Errorf("snapshot defaults = %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("RELAY_HTTP_ADDR", ":8000")
	t.Setenv("RELAY_GRPC_ADDR", ":9999")
	t.Setenv("RELAY_NATS_URL", "nats://localhost:4222")
	t.Setenv("RELAY_SWEEP_INTERVAL", "10s")
	t.Setenv("RELAY_INACTIVITY_TIMEOUT", "1m")
	t.Setenv("RELAY_AUDIT_DATABASE_URL", "postgres://localhost/relay")
	t.Setenv("RELAY_SNAPSHOT_INTERVAL", "5m")
	t.Setenv("RELAY_SNAPSHOT_S3_BUCKET", "fleet")
	t.Setenv("RELAY_SNAPSHOT_FILE", "/var/lib/relay/agents.jsonl")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8000" || cfg.GRPCAddr != ":9999" || cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("addresses = %+v", cfg)
	}
	if cfg.SweepInterval != 10*time.Second || cfg.InactivityTimeout != time.Minute {
		t.Errorf("liveness = %v / %v", cfg.SweepInterval, cfg.InactivityTimeout)
	}
	if cfg.AuditDatabaseURL != "postgres://localhost/relay" {
		t.Errorf("AuditDatabaseURL = %q", cfg.AuditDatabaseURL)
	}
	if cfg.SnapshotInterval != 5*time.Minute || cfg.SnapshotS3Bucket != "fleet" || cfg.SnapshotFile != "/var/lib/relay/agents.jsonl" {
		t.Errorf("snapshot = %+v", cfg)
	}
}

func TestLoad_EmptyGRPCAddrDisables(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("RELAY_GRPC_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GRPCAddr != "" {
		t.Fatalf("GRPCAddr = %q, want empty", cfg.GRPCAddr)
	}
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, tc := range []struct {
		key, value string
	}{
		{"RELAY_SWEEP_INTERVAL", "soon"},
		{"RELAY_SWEEP_INTERVAL", "-5s"},
		{"RELAY_INACTIVITY_TIMEOUT", "0s"},
		{"RELAY_SNAPSHOT_INTERVAL", "10"},
	} {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}
