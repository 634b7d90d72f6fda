package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/relay/internal/events"
	"github.com/alfredjeanlab/relay/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:               "watch",
	Short:             "Stream relay events from NATS",
	GroupID:           "operator",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats")
		topic, _ := cmd.Flags().GetString("topic")
		if natsURL == "" {
			natsURL = os.Getenv("RELAY_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemote().NATSURL
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: pass --nats, set RELAY_NATS_URL or configure a remote")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchNATS(ctx, natsURL, topic, cmd.OutOrStdout())
	},
}

func watchNATS(ctx context.Context, natsURL, topic string, w io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(w, msg, time.Now())
		}
	}
}

func printEvent(w io.Writer, msg events.Message, at time.Time) {
	if jsonOutput {
		fmt.Fprintf(w, "{\"topic\":%q,\"event\":%s}\n", msg.Topic, compact(msg.Data))
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", ui.Muted("%s", at.Format("15:04:05")), ui.Accent("%s", msg.Topic), compact(msg.Data))
}

func compact(data []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}

func init() {
	watchCmd.Flags().String("nats", "", "NATS URL (default $RELAY_NATS_URL or the active remote)")
	watchCmd.Flags().String("topic", events.TopicPrefix+".>", "NATS subject to watch")
}
