// Package client provides a transport-agnostic interface for the relay and
// HTTP/JSON and gRPC implementations of it.
package client

import (
	"context"

	"github.com/alfredjeanlab/relay/internal/model"
)

// RelayClient is the interface the console, the CLI and the agent
// simulator use to talk to a relay. It is implemented by HTTPClient
// (default) and GRPCClient.
type RelayClient interface {
	// Agent side
	Report(ctx context.Context, req *model.ReportRequest) error
	GetCommand(ctx context.Context, agentID string) (*model.CommandEnvelope, error)

	// Operator side
	GetReports(ctx context.Context) ([]model.ReportEvent, error)
	SendCommand(ctx context.Context, agentID string, cmd *model.CommandEnvelope) error
	SendCommandToAll(ctx context.Context, cmd *model.CommandEnvelope) (int, error)
	ListClients(ctx context.Context) (map[string]model.AgentRecord, error)
	// RemoveClient reports false when the agent was not registered.
	RemoveClient(ctx context.Context, agentID string) (bool, error)

	// Health
	Health(ctx context.Context) (*model.Stats, error)

	// Lifecycle
	Close() error
}
