package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/relay/internal/client"
	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/relay"
	"github.com/alfredjeanlab/relay/internal/server"
)

func TestSimAgentStep(t *testing.T) {
	svc := relay.New()
	defer svc.Close()
	ts := httptest.NewServer(server.NewRelayServer(svc, nil, nil).NewHTTPHandler())
	defer ts.Close()

	c := client.NewHTTPClient(ts.URL)
	a := &simAgent{id: "sim-1", client: c, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ctx := context.Background()

	cmd, err := a.step(ctx)
	if err != nil || cmd != nil {
		t.Fatalf("first step: cmd=%v err=%v", cmd, err)
	}
	reports, _ := c.GetReports(ctx)
	if len(reports) != 2 || reports[0].Kind() != model.KindNewConnection || reports[1].Kind() != model.KindHeartbeat {
		t.Fatalf("reports after first step = %+v", reports)
	}

	env, _ := model.NewCommand(model.CommandGetInfo, nil)
	if err := c.SendCommand(ctx, "sim-1", env); err != nil {
		t.Fatal(err)
	}
	cmd, err = a.step(ctx)
	if err != nil || cmd == nil || cmd.Type != model.CommandGetInfo {
		t.Fatalf("second step: cmd=%v err=%v", cmd, err)
	}

	reports, _ = c.GetReports(ctx)
	if len(reports) != 2 || reports[1].Status != simStatusAck {
		t.Fatalf("reports after second step = %+v", reports)
	}
	var ack struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(reports[1].Info, &ack); err != nil || ack.Type != model.CommandGetInfo {
		t.Errorf("ack info = %s (%v)", reports[1].Info, err)
	}

	if cmd, _ := a.step(ctx); cmd != nil {
		t.Errorf("command delivered twice: %+v", cmd)
	}
}
