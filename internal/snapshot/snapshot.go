// Package snapshot periodically exports the agent roster as JSONL to one
// or more destinations. Exports are write-only: the relay never loads a
// snapshot back, so a restart still begins with an empty registry.
package snapshot

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/relay/internal/model"
)

// Roster is the source of a snapshot. *relay.Service satisfies it.
type Roster interface {
	ListAgents() map[string]model.AgentRecord
}

// Destination is the interface for a snapshot target (S3, local file).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores the JSONL payload, replacing any previous snapshot.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	roster       Roster
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports roster to the given
// destinations at the specified interval.
func NewScheduler(roster Roster, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		roster:       roster,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. The first export runs one interval after
// Start, when agents have had a chance to check in.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler, waits for an in-flight export and then
// writes one final snapshot.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.ExportOnce(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExportOnce(ctx)
		}
	}
}

// ExportOnce writes the current roster to every destination. Failures are
// logged per destination.
func (s *Scheduler) ExportOnce(ctx context.Context) {
	var buf bytes.Buffer
	n, err := ExportJSONL(s.roster, time.Now().UTC(), &buf)
	if err != nil {
		s.logger.Error("snapshot export failed", "err", err)
		return
	}
	data := buf.Bytes()

	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("snapshot write failed", "destination", dest.Name(), "err", err)
		}
	}

	s.logger.Info("snapshot completed", "destinations", len(s.destinations), "agents", n, "bytes", len(data))
}
