package reports

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/relay/internal/model"
)

func ev(agent, status string) model.ReportEvent {
	return model.ReportEvent{
		ID:        fmt.Sprintf("%s/%s", agent, status),
		AgentID:   agent,
		Status:    status,
		Info:      model.EmptyObject,
		Timestamp: time.Now(),
	}
}

func TestDrain_OrderAndClear(t *testing.T) {
	b := New()
	b.Append(ev("a", "1"))
	b.Append(ev("b", "2"), ev("a", "3"))

	got := b.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain() returned %d events, want 3", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].Status != want {
			t.Errorf("event %d status = %q, want %q", i, got[i].Status, want)
		}
	}

	again := b.Drain()
	if again == nil {
		t.Fatal("Drain() on empty buffer returned nil, want empty slice")
	}
	if len(again) != 0 {
		t.Errorf("second Drain() returned %d events, want 0", len(again))
	}
}

func TestAppend_NoEvents(t *testing.T) {
	b := New()
	b.Append()
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestDrain_ReturnedSliceNotAliased(t *testing.T) {
	b := New()
	b.Append(ev("a", "1"))
	first := b.Drain()
	b.Append(ev("a", "2"))

	if first[0].Status != "1" {
		t.Errorf("drained slice mutated by later append: %q", first[0].Status)
	}
}

// Every appended event must appear in exactly one drain, even with
// appends racing against drains.
func TestDrain_ExactlyOnceUnderConcurrency(t *testing.T) {
	b := New()
	const (
		writers   = 8
		perWriter = 500
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Append(ev(fmt.Sprintf("w%d", w), fmt.Sprintf("%d", i)))
			}
		}(w)
	}

	seen := make(map[string]int)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		for _, e := range b.Drain() {
			seen[e.ID]++
		}
	}
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			collect()
		}
	}
	collect()

	if len(seen) != writers*perWriter {
		t.Fatalf("saw %d distinct events, want %d", len(seen), writers*perWriter)
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("event %s drained %d times", id, n)
		}
	}
}

func TestDrain_PerWriterOrderPreserved(t *testing.T) {
	b := New()
	for i := 0; i < 100; i++ {
		b.Append(ev("a", fmt.Sprintf("%03d", i)))
	}
	got := b.Drain()
	for i := 1; i < len(got); i++ {
		if got[i-1].Status >= got[i].Status {
			t.Fatalf("out of order at %d: %q then %q", i, got[i-1].Status, got[i].Status)
		}
	}
}
