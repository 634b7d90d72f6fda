package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/relay/internal/model"
)

// DefaultTimeout is how long an agent may stay silent before a sweep
// evicts it.
const DefaultTimeout = 25 * time.Second

// DefaultInterval is how often the console triggers a sweep.
const DefaultInterval = 10 * time.Second

// Stale returns the identifiers in agents whose last contact is strictly
// more than timeout before now, sorted.
func Stale(agents map[string]model.AgentRecord, now time.Time, timeout time.Duration) []string {
	var ids []string
	for id, rec := range agents {
		if now.Sub(rec.LastSeen) > timeout {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Sweep removes every agent that is stale at now and returns the
// identifiers it actually removed.
//
// The selection runs against a snapshot and each removal is a separate
// call, so an agent that re-contacts in between can be evicted right after
// re-registering. It will re-enter as a new agent on its next contact.
func (r *Registry) Sweep(now time.Time, timeout time.Duration) []string {
	var removed []string
	for _, id := range Stale(r.Snapshot(), now, timeout) {
		if r.Remove(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

// ReaperConfig configures a self-scheduled sweep.
type ReaperConfig struct {
	// Timeout is passed to every sweep. Default: DefaultTimeout.
	Timeout time.Duration

	// Interval is how often the reaper sweeps. Default: DefaultInterval.
	Interval time.Duration

	// Now supplies the sweep time. Default: time.Now.
	Now func() time.Time
}

// Reaper runs a sweep function on a ticker until stopped.
type Reaper struct {
	sweep func(now time.Time, timeout time.Duration) []string
	cfg   ReaperConfig

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StartReaper launches a goroutine that calls sweep every cfg.Interval.
// Call Stop to shut it down.
func StartReaper(sweep func(now time.Time, timeout time.Duration) []string, cfg ReaperConfig) *Reaper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rp := &Reaper{
		sweep: sweep,
		cfg:   cfg,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go rp.loop()
	slog.Info("presence: reaper started",
		"timeout", cfg.Timeout,
		"interval", cfg.Interval)
	return rp
}

// Stop shuts down the reaper and waits for an in-flight sweep to finish.
// It is safe to call more than once.
func (rp *Reaper) Stop() {
	rp.stopOnce.Do(func() {
		close(rp.stop)
	})
	<-rp.done
}

func (rp *Reaper) loop() {
	defer close(rp.done)

	ticker := time.NewTicker(rp.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-rp.stop:
			return
		case <-ticker.C:
			for _, id := range rp.sweep(rp.cfg.Now(), rp.cfg.Timeout) {
				slog.Info("presence: reaper removed inactive agent",
					"agent_id", id,
					"timeout", rp.cfg.Timeout)
			}
		}
	}
}
