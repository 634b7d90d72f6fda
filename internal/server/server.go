// Package server exposes a relay.Service over HTTP and gRPC and fans its
// events out to NATS, SSE clients and the audit log.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/relay/internal/events"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/relay"
	"github.com/alfredjeanlab/relay/internal/store"
)

// Acknowledgement messages returned to agents and the console.
const (
	msgStatusReceived = "Status received."
	msgCommandQueued  = "Command queued."
	msgQueuedForAll   = "Command queued for all clients."
)

// Reasons carried by events.AgentRemoved.
const (
	RemovedByOperator = "operator"
	RemovedBySweep    = "sweep"
)

// RelayService is the set of operations served over gRPC. RelayServer
// implements it and the HTTP handlers call the same methods.
type RelayService interface {
	Report(context.Context, *model.ReportRequest) (*model.MessageResponse, error)
	GetReports(context.Context, *model.Empty) (*model.ReportList, error)
	GetCommand(context.Context, *model.AgentRef) (*model.CommandResponse, error)
	SendCommand(context.Context, *model.SendCommandRequest) (*model.MessageResponse, error)
	SendCommandToAll(context.Context, *model.BroadcastRequest) (*model.MessageResponse, error)
	ListClients(context.Context, *model.Empty) (*model.ClientMap, error)
	RemoveClient(context.Context, *model.AgentRef) (*model.MessageResponse, error)
	Health(context.Context, *model.Empty) (*model.Stats, error)
}

// RelayServer adapts a relay.Service to the transports.
type RelayServer struct {
	relay     *relay.Service
	publisher events.Publisher
	store     store.Store // nil when the audit log is disabled
	sseHub    *sseHub
}

var _ RelayService = (*RelayServer)(nil)

// NewRelayServer returns a RelayServer. p may be nil, in which case events
// are not published to NATS. s may be nil to disable the audit log.
func NewRelayServer(svc *relay.Service, p events.Publisher, s store.Store) *RelayServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	return &RelayServer{
		relay:     svc,
		publisher: p,
		store:     s,
		sseHub:    newSSEHub(),
	}
}

// recordAndPublish writes an event to the audit log, publishes it to NATS
// and fans it out to SSE clients. Every sink is best-effort; failures are
// logged and never reach the caller.
func (s *RelayServer) recordAndPublish(ctx context.Context, topic, agentID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal event", "topic", topic, "agent_id", agentID, "error", err)
		return
	}
	if s.store != nil {
		if err := s.store.RecordEvent(ctx, &model.Event{
			Topic:   topic,
			AgentID: agentID,
			Payload: payload,
		}); err != nil {
			slog.Warn("failed to record event", "topic", topic, "agent_id", agentID, "error", err)
		}
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "agent_id", agentID, "error", err)
	}
	s.sseHub.broadcast(topic, payload)
}

// Report records a status report from an agent.
func (s *RelayServer) Report(ctx context.Context, req *model.ReportRequest) (*model.MessageResponse, error) {
	if req == nil {
		req = &model.ReportRequest{}
	}
	id := req.ID()
	contact := s.relay.RegisterOrUpdate(id, req.Status, req.Payload(), req.Version)

	if contact.New {
		slog.Info("agent connected", "agent_id", id, "version", req.Version)
		s.recordAndPublish(ctx, events.TopicAgentConnected, id, events.NewAgentConnected(contact.Record))
	}
	for _, ev := range contact.Events {
		s.recordAndPublish(ctx, events.TopicReport, id, events.NewReport(ev))
	}
	return &model.MessageResponse{Message: msgStatusReceived}, nil
}

// GetReports drains the report buffer.
func (s *RelayServer) GetReports(context.Context, *model.Empty) (*model.ReportList, error) {
	return &model.ReportList{Reports: s.relay.DrainReports()}, nil
}

// GetCommand hands the pending command for an agent to the agent, if any.
func (s *RelayServer) GetCommand(ctx context.Context, req *model.AgentRef) (*model.CommandResponse, error) {
	var id string
	if req != nil {
		id = req.AgentID
	}
	env := s.relay.DequeueCommand(id)
	if env != nil {
		s.recordAndPublish(ctx, events.TopicCommandDelivered, id, events.CommandDelivered{AgentID: id, Command: events.SummarizeCommand(env)})
	}
	return &model.CommandResponse{Command: env}, nil
}

// SendCommand queues a command for one agent, replacing any command it has
// not collected yet. The agent need not be registered.
func (s *RelayServer) SendCommand(ctx context.Context, req *model.SendCommandRequest) (*model.MessageResponse, error) {
	if req == nil {
		req = &model.SendCommandRequest{}
	}
	id := req.ID()
	s.relay.EnqueueCommand(id, req.Command)
	queued := relay.NormalizeCommand(req.Command)
	slog.Info("command queued", "agent_id", id, "type", queued.Type)
	s.recordAndPublish(ctx, events.TopicCommandQueued, id, events.CommandQueued{AgentID: id, Command: events.SummarizeCommand(queued)})
	return &model.MessageResponse{Message: msgCommandQueued}, nil
}

// SendCommandToAll queues a command for every agent registered right now.
func (s *RelayServer) SendCommandToAll(ctx context.Context, req *model.BroadcastRequest) (*model.MessageResponse, error) {
	var cmd *model.CommandEnvelope
	if req != nil {
		cmd = req.Command
	}
	ids := s.relay.EnqueueCommandBroadcast(cmd)
	queued := relay.NormalizeCommand(cmd)
	slog.Info("command queued for all clients", "type", queued.Type, "agents", len(ids))
	summary := events.SummarizeCommand(queued)
	for _, id := range ids {
		s.recordAndPublish(ctx, events.TopicCommandQueued, id, events.CommandQueued{AgentID: id, Command: summary, Broadcast: true})
	}
	return &model.MessageResponse{Message: msgQueuedForAll, Queued: len(ids)}, nil
}

// ListClients returns a snapshot of the registry.
func (s *RelayServer) ListClients(context.Context, *model.Empty) (*model.ClientMap, error) {
	return &model.ClientMap{Clients: s.relay.ListAgents()}, nil
}

// RemoveClient removes an agent from the registry. An unknown agent yields
// codes.NotFound.
func (s *RelayServer) RemoveClient(ctx context.Context, req *model.AgentRef) (*model.MessageResponse, error) {
	var id string
	if req != nil {
		id = req.AgentID
	}
	if !s.relay.RemoveAgent(id) {
		return nil, status.Errorf(codes.NotFound, "Client %s not found.", id)
	}
	slog.Info("agent removed", "agent_id", id, "reason", RemovedByOperator)
	s.recordAndPublish(ctx, events.TopicAgentRemoved, id, events.AgentRemoved{AgentID: id, Reason: RemovedByOperator})
	return &model.MessageResponse{Message: fmt.Sprintf("Client %s removed.", id)}, nil
}

// Health reports the size of the relay's in-memory state.
func (s *RelayServer) Health(context.Context, *model.Empty) (*model.Stats, error) {
	stats := s.relay.Stats()
	return &stats, nil
}

// AgentSwept is the relay.Service reaper callback. It emits the removal
// event for an agent evicted by the server-side sweep.
func (s *RelayServer) AgentSwept(id string) {
	slog.Info("agent removed", "agent_id", id, "reason", RemovedBySweep)
	s.recordAndPublish(context.Background(), events.TopicAgentRemoved, id, events.AgentRemoved{AgentID: id, Reason: RemovedBySweep})
}
