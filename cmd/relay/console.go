package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/relay/internal/console"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:     "console",
	Short:   "Open the interactive operator console",
	GroupID: "operator",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		poll, _ := cmd.Flags().GetDuration("poll")
		sweep, _ := cmd.Flags().GetDuration("sweep")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		c := console.New(relayClient, cmd.InOrStdin(), cmd.OutOrStdout(), console.Config{
			PollInterval:      poll,
			SweepInterval:     sweep,
			InactivityTimeout: timeout,
		})
		return c.Run(ctx)
	},
}

func init() {
	consoleCmd.Flags().Duration("poll", 0, "report poll interval (default 1s)")
	consoleCmd.Flags().Duration("sweep", 0, "inactive client sweep interval (default 10s)")
	consoleCmd.Flags().Duration("timeout", 0, "inactivity timeout before a client is removed (default 25s)")
}
