package main

import (
	"fmt"
	"os"

	"github.com/alfredjeanlab/relay/internal/client"
	"github.com/alfredjeanlab/relay/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	httpURL    string
	transport  string
	jsonOutput bool

	relayClient client.RelayClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("RELAY_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemote().HTTPURL; u != "" {
		return u
	}
	return "http://localhost:5000"
}

func defaultServer() string {
	if s := os.Getenv("RELAY_SERVER"); s != "" {
		return s
	}
	if u := activeRemote().GRPCAddr; u != "" {
		return u
	}
	return "localhost:9090"
}

// newRelayClient builds the client for the selected transport.
func newRelayClient() (client.RelayClient, error) {
	switch transport {
	case "http":
		return client.NewHTTPClient(httpURL), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
	}
}

// skipClient overrides the root pre-run for commands that do not talk to
// a relay through relayClient.
func skipClient(*cobra.Command, []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "relay <command>",
	Short:         "Relay server, operator console and tooling for a fleet of agents",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Setup()
		c, err := newRelayClient()
		if err != nil {
			return err
		}
		relayClient = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if relayClient != nil {
			relayClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "relay HTTP URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "relay gRPC address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "operator", Title: "Operator:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Operator
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(broadcastCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error: %v", err))
		os.Exit(1)
	}
}
