package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/relay/internal/client"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/ui"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:     "clients",
	Short:   "List registered agents",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clients, err := relayClient.ListClients(context.Background())
		if err != nil {
			return fmt.Errorf("listing clients: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), clients)
		}
		printClientsTable(cmd.OutOrStdout(), clients, time.Now())
		return nil
	},
}

// parseCommandArgs builds an envelope from a type and optional JSON data.
func parseCommandArgs(typ string, rest []string) (*model.CommandEnvelope, error) {
	if typ == "" {
		return nil, fmt.Errorf("command type is required")
	}
	if len(rest) == 0 {
		return model.NewCommand(typ, nil)
	}
	raw := json.RawMessage(rest[0])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("command data is not valid JSON: %s", rest[0])
	}
	return &model.CommandEnvelope{Type: typ, Data: model.OrEmpty(raw)}, nil
}

var sendCmd = &cobra.Command{
	Use:     "send <agent_id> <type> [json-data]",
	Short:   "Queue a command for one agent",
	GroupID: "operator",
	Args:    cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := parseCommandArgs(args[1], args[2:])
		if err != nil {
			return err
		}
		if err := relayClient.SendCommand(context.Background(), args[0], env); err != nil {
			return fmt.Errorf("sending command: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"agent_id": args[0], "command": env})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("queued %s for %s", env.Type, args[0]))
		return nil
	},
}

var broadcastCmd = &cobra.Command{
	Use:     "broadcast <type> [json-data]",
	Short:   "Queue a command for every registered agent",
	GroupID: "operator",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := parseCommandArgs(args[0], args[1:])
		if err != nil {
			return err
		}
		n, err := relayClient.SendCommandToAll(context.Background(), env)
		if err != nil {
			return fmt.Errorf("broadcasting command: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"queued": n, "command": env})
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("queued %s for %d clients", env.Type, n))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <agent_id>",
	Short:   "Forget a registered agent",
	GroupID: "operator",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := relayClient.RemoveClient(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("removing client: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"agent_id": args[0], "removed": removed})
		}
		if !removed {
			return fmt.Errorf("client %s not found", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Warn("client %s removed", args[0]))
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:     "reports",
	Short:   "Drain and print buffered reports",
	Long:    "Drain and print buffered reports. Draining is destructive: a running console will not see these reports.",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := relayClient.GetReports(context.Background())
		if err != nil {
			return fmt.Errorf("draining reports: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), reports)
		}
		printReportsTable(cmd.OutOrStdout(), reports)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:               "events",
	Short:             "Query the relay's audit log",
	GroupID:           "operator",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID, _ := cmd.Flags().GetString("agent")
		topic, _ := cmd.Flags().GetString("topic")
		limit, _ := cmd.Flags().GetInt("limit")

		// The audit log is only served over HTTP.
		evts, err := client.NewHTTPClient(httpURL).ListEvents(context.Background(), client.EventQuery{
			AgentID: agentID,
			Topic:   topic,
			Limit:   limit,
		})
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		printEventsTable(cmd.OutOrStdout(), evts)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the relay",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := relayClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), stats); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", stats.Status)
			fmt.Fprintf(cmd.OutOrStdout(), "Agents: %d  Pending commands: %d  Buffered reports: %d\n",
				stats.Agents, stats.PendingCommands, stats.BufferedReports)
		}
		if stats.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", stats.Status)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("agent", "", "only events for this agent")
	eventsCmd.Flags().String("topic", "", "only events with this topic")
	eventsCmd.Flags().Int("limit", 0, "maximum number of events (server default 100)")
}
