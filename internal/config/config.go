// Package config loads relay server settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	HTTPAddr string // RELAY_HTTP_ADDR (default ":5000")
	GRPCAddr string // RELAY_GRPC_ADDR (default ":9090"; empty = gRPC disabled)
	NATSURL  string // RELAY_NATS_URL (optional, empty = no events)

	// Liveness
	SweepInterval     time.Duration // RELAY_SWEEP_INTERVAL (default 0 = console drives the sweep)
	InactivityTimeout time.Duration // RELAY_INACTIVITY_TIMEOUT (default 25s)

	// Audit log
	AuditDatabaseURL string // RELAY_AUDIT_DATABASE_URL (optional, empty = no audit log)

	// Roster snapshot settings
	SnapshotInterval   time.Duration // RELAY_SNAPSHOT_INTERVAL (default 0 = disabled)
	SnapshotS3Bucket   string        // RELAY_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // RELAY_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // RELAY_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // RELAY_SNAPSHOT_S3_KEY (default "relay/agents.jsonl")
	SnapshotFile       string        // RELAY_SNAPSHOT_FILE (enables a local file when set)
}

// grpcDefault is used when RELAY_GRPC_ADDR is unset. Setting the variable
// to the empty string disables gRPC.
const grpcDefault = ":9090"

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:           envOrDefault("RELAY_HTTP_ADDR", ":5000"),
		GRPCAddr:           grpcDefault,
		NATSURL:            os.Getenv("RELAY_NATS_URL"),
		AuditDatabaseURL:   os.Getenv("RELAY_AUDIT_DATABASE_URL"),
		SnapshotS3Bucket:   os.Getenv("RELAY_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("RELAY_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("RELAY_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("RELAY_SNAPSHOT_S3_KEY", "relay/agents.jsonl"),
		SnapshotFile:       os.Getenv("RELAY_SNAPSHOT_FILE"),
	}
	if v, ok := os.LookupEnv("RELAY_GRPC_ADDR"); ok {
		c.GRPCAddr = v
	}

	var err error
	if c.SweepInterval, err = durationEnv("RELAY_SWEEP_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if c.InactivityTimeout, err = durationEnv("RELAY_INACTIVITY_TIMEOUT", "25s"); err != nil {
		return nil, err
	}
	if c.InactivityTimeout <= 0 {
		return nil, fmt.Errorf("RELAY_INACTIVITY_TIMEOUT must be positive, got %s", c.InactivityTimeout)
	}
	if c.SnapshotInterval, err = durationEnv("RELAY_SNAPSHOT_INTERVAL", "0"); err != nil {
		return nil, err
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
