package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/rpcjson"
)

// GRPCClient implements RelayClient using the gRPC transport.
type GRPCClient struct {
	conn *grpc.ClientConn
}

var _ RelayClient = (*GRPCClient)(nil)

// NewGRPCClient connects to the given gRPC address and returns a client.
// Calls use the JSON codec.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(rpcjson.CallOption()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) Report(ctx context.Context, req *model.ReportRequest) error {
	var ack model.MessageResponse
	return c.conn.Invoke(ctx, model.MethodReport, req, &ack)
}

func (c *GRPCClient) GetCommand(ctx context.Context, agentID string) (*model.CommandEnvelope, error) {
	var resp model.CommandResponse
	if err := c.conn.Invoke(ctx, model.MethodGetCommand, &model.AgentRef{AgentID: agentID}, &resp); err != nil {
		return nil, err
	}
	return resp.Command, nil
}

func (c *GRPCClient) GetReports(ctx context.Context) ([]model.ReportEvent, error) {
	var resp model.ReportList
	if err := c.conn.Invoke(ctx, model.MethodGetReports, &model.Empty{}, &resp); err != nil {
		return nil, err
	}
	if resp.Reports == nil {
		resp.Reports = []model.ReportEvent{}
	}
	return resp.Reports, nil
}

func (c *GRPCClient) SendCommand(ctx context.Context, agentID string, cmd *model.CommandEnvelope) error {
	var ack model.MessageResponse
	return c.conn.Invoke(ctx, model.MethodSendCommand, &model.SendCommandRequest{AgentID: agentID, Command: cmd}, &ack)
}

func (c *GRPCClient) SendCommandToAll(ctx context.Context, cmd *model.CommandEnvelope) (int, error) {
	var ack model.MessageResponse
	if err := c.conn.Invoke(ctx, model.MethodSendCommandToAll, &model.BroadcastRequest{Command: cmd}, &ack); err != nil {
		return 0, err
	}
	return ack.Queued, nil
}

func (c *GRPCClient) ListClients(ctx context.Context) (map[string]model.AgentRecord, error) {
	var resp model.ClientMap
	if err := c.conn.Invoke(ctx, model.MethodListClients, &model.Empty{}, &resp); err != nil {
		return nil, err
	}
	if resp.Clients == nil {
		resp.Clients = map[string]model.AgentRecord{}
	}
	return resp.Clients, nil
}

func (c *GRPCClient) RemoveClient(ctx context.Context, agentID string) (bool, error) {
	var ack model.MessageResponse
	err := c.conn.Invoke(ctx, model.MethodRemoveClient, &model.AgentRef{AgentID: agentID}, &ack)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *GRPCClient) Health(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	if err := c.conn.Invoke(ctx, model.MethodHealth, &model.Empty{}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
