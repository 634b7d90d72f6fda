// Package console implements the operator loop: it drains and prints agent
// reports, evicts silent agents, and turns typed commands into relay calls.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alfredjeanlab/relay/internal/client"
	"github.com/alfredjeanlab/relay/internal/presence"
	"github.com/alfredjeanlab/relay/internal/ui"
)

// Config tunes the console loop. Zero values take the defaults.
type Config struct {
	// PollInterval is how often reports are drained (default 1s).
	PollInterval time.Duration
	// SweepInterval is how often silent agents are evicted (default 10s).
	SweepInterval time.Duration
	// InactivityTimeout is how long an agent may stay silent (default 25s).
	InactivityTimeout time.Duration
	// CallTimeout bounds each relay call (default 5s).
	CallTimeout time.Duration

	Now      func() time.Time
	ReadFile func(name string) ([]byte, error)
}

func (c *Config) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = presence.DefaultInterval
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = presence.DefaultTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.ReadFile == nil {
		c.ReadFile = os.ReadFile
	}
}

// Console is one operator session against a relay.
type Console struct {
	client client.RelayClient
	out    io.Writer
	cfg    Config

	lines     <-chan string
	lastSweep time.Time

	// pollFailing is set while report polls fail, so that an outage is
	// reported once rather than every cycle.
	pollFailing bool
}

// New returns a Console reading operator input from in and printing to out.
func New(c client.RelayClient, in io.Reader, out io.Writer, cfg Config) *Console {
	cfg.setDefaults()
	return &Console{
		client: c,
		out:    out,
		cfg:    cfg,
		lines:  readLines(in),
	}
}

// readLines feeds input lines to a channel that is closed at EOF.
func readLines(in io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
	}()
	return ch
}

// Run drives the loop until /exit, end of input or ctx is cancelled.
// Relay failures are printed and retried on the next cycle.
func (c *Console) Run(ctx context.Context) error {
	c.println(ui.Success("Welcome to the relay console. Type /help for a list of commands."))
	c.lastSweep = c.cfg.Now()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		c.Tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-c.lines:
			if !ok {
				return nil
			}
			if c.Handle(ctx, line) == errExit {
				c.println(ui.Warn("Leaving the relay console."))
				return nil
			}
		case <-ticker.C:
		}
	}
}

// Tick drains and prints pending reports, then sweeps if the sweep
// interval has elapsed.
func (c *Console) Tick(ctx context.Context) {
	c.pollReports(ctx)
	if now := c.cfg.Now(); now.Sub(c.lastSweep) >= c.cfg.SweepInterval {
		c.Sweep(ctx)
		c.lastSweep = now
	}
}

func (c *Console) pollReports(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	reports, err := c.client.GetReports(callCtx)
	if err != nil {
		if !c.pollFailing {
			c.println(ui.Error("[SERVER] Error: cannot fetch reports: %v", err))
			c.pollFailing = true
		}
		return
	}
	if c.pollFailing {
		c.println(ui.Success("[SERVER] Connection to the relay restored."))
		c.pollFailing = false
	}
	for i := range reports {
		c.renderReport(&reports[i])
	}
}

// Sweep removes every agent silent for longer than the inactivity timeout.
// It lists clients, picks the stale ones and removes each in turn, so an
// agent that checks in between the list and the removal is still evicted
// and will reappear as a new connection.
func (c *Console) Sweep(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	clients, err := c.client.ListClients(callCtx)
	if err != nil {
		c.println(ui.Error("[SERVER] Error: cannot reach the relay: %v", err))
		return
	}
	for _, id := range presence.Stale(clients, c.cfg.Now(), c.cfg.InactivityTimeout) {
		removed, err := c.client.RemoveClient(callCtx, id)
		if err != nil {
			c.println(ui.Error("[SERVER] Error: cannot remove client %s: %v", id, err))
			continue
		}
		if removed {
			c.println(ui.Warn("[SERVER] Removed inactive client: %s", id))
		}
	}
}

// confirm prints prompt and waits for the operator's next line. Only
// "YES" (any case) confirms.
func (c *Console) confirm(ctx context.Context, prompt string) bool {
	fmt.Fprint(c.out, ui.Error("%s", prompt))
	select {
	case <-ctx.Done():
		return false
	case line, ok := <-c.lines:
		return ok && strings.EqualFold(strings.TrimSpace(line), "YES")
	}
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
