package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/alfredjeanlab/relay/internal/client"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/spf13/cobra"
)

// simStatusAck is reported after a simulated agent receives a command. The
// simulator never executes commands.
const simStatusAck = "command-received"

const simVersion = "sim-1.0"

// simAgent is a stand-in agent that heartbeats and acknowledges commands.
type simAgent struct {
	id     string
	client client.RelayClient
	logger *slog.Logger
}

// step sends one heartbeat, polls the mailbox once and acknowledges any
// command found there. It returns the received command, if any.
func (a *simAgent) step(ctx context.Context) (*model.CommandEnvelope, error) {
	if err := a.client.Report(ctx, &model.ReportRequest{
		AgentID: a.id,
		Status:  model.StatusRunning,
		Version: simVersion,
	}); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	cmd, err := a.client.GetCommand(ctx, a.id)
	if err != nil {
		return nil, fmt.Errorf("get command: %w", err)
	}
	if cmd == nil {
		return nil, nil
	}

	a.logger.Info("command received", "agent_id", a.id, "type", cmd.Type)
	info, err := json.Marshal(map[string]any{"type": cmd.Type, "data": model.OrEmpty(cmd.Data)})
	if err != nil {
		return cmd, err
	}
	if err := a.client.Report(ctx, &model.ReportRequest{
		AgentID: a.id,
		Status:  simStatusAck,
		Info:    info,
		Version: simVersion,
	}); err != nil {
		return cmd, fmt.Errorf("ack: %w", err)
	}
	return cmd, nil
}

func (a *simAgent) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := a.step(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("simulated agent step failed", "agent_id", a.id, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

var simulateCmd = &cobra.Command{
	Use:     "simulate",
	Short:   "Run simulated agents that heartbeat and acknowledge commands",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("agents")
		prefix, _ := cmd.Flags().GetString("prefix")
		interval, _ := cmd.Flags().GetDuration("interval")
		if count <= 0 {
			return fmt.Errorf("--agents must be positive")
		}
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var wg sync.WaitGroup
		for i := 1; i <= count; i++ {
			a := &simAgent{id: fmt.Sprintf("%s%d", prefix, i), client: relayClient, logger: logger}
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.run(ctx, interval)
			}()
		}
		logger.Info("simulated agents started", "count", count, "interval", interval)
		wg.Wait()
		return nil
	},
}

func init() {
	simulateCmd.Flags().Int("agents", 3, "number of simulated agents")
	simulateCmd.Flags().String("prefix", "sim-", "agent id prefix")
	simulateCmd.Flags().Duration("interval", 5*time.Second, "heartbeat and poll interval")
}
