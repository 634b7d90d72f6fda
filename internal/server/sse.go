package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// sseHistorySize is how many recent events are kept for Last-Event-ID
	// replay.
	sseHistorySize = 512

	// sseClientBuffer is the per-subscriber channel capacity. A subscriber
	// that falls this far behind loses events.
	sseClientBuffer = 64

	sseKeepaliveInterval = 15 * time.Second
)

// sseEvent is one relay event as sent on the stream.
type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// topicFilter is a set of NATS-style subject patterns. An empty filter
// matches every topic.
type topicFilter []string

func parseTopicFilter(q string) topicFilter {
	var f topicFilter
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			f = append(f, t)
		}
	}
	return f
}

func (f topicFilter) match(topic string) bool {
	if len(f) == 0 {
		return true
	}
	for _, pattern := range f {
		if matchTopicPattern(pattern, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern. "*"
// matches exactly one segment and a trailing ">" matches one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, p := range pat {
		if p == ">" {
			return i < len(top)
		}
		if i >= len(top) || (p != "*" && p != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

type sseSubscriber struct {
	filter topicFilter
	ch     chan sseEvent
}

// sseHub fans relay events out to connected stream clients and keeps a
// bounded history for reconnects.
type sseHub struct {
	mu      sync.Mutex
	lastID  uint64
	history []sseEvent // oldest first, at most sseHistorySize
	subs    map[*sseSubscriber]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{subs: make(map[*sseSubscriber]struct{})}
}

// broadcast assigns the next sequence number to an event, records it and
// offers it to every matching subscriber without blocking.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := sseEvent{ID: h.lastID, Topic: topic, Data: payload}

	if len(h.history) == sseHistorySize {
		copy(h.history, h.history[1:])
		h.history = h.history[:sseHistorySize-1]
	}
	h.history = append(h.history, evt)

	for sub := range h.subs {
		if !sub.filter.match(topic) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// subscribe registers a subscriber and returns the retained events newer
// than lastID that match filter. Registration and the history read happen
// under one lock, so no event is both replayed and delivered or neither.
func (h *sseHub) subscribe(filter topicFilter, lastID uint64) (*sseSubscriber, []sseEvent) {
	sub := &sseSubscriber{filter: filter, ch: make(chan sseEvent, sseClientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}

	if lastID == 0 {
		return sub, nil
	}
	var backlog []sseEvent
	for _, evt := range h.history {
		if evt.ID > lastID && filter.match(evt.Topic) {
			backlog = append(backlog, evt)
		}
	}
	return sub, backlog
}

func (h *sseHub) unsubscribe(sub *sseSubscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// handleEventStream handles GET /events/stream.
//
// Query parameter "topics" takes a comma-separated list of patterns such as
// "relay.agent.*". A Last-Event-ID header replays retained events.
func (s *RelayServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}
	sub, backlog := s.sseHub.subscribe(parseTopicFilter(r.URL.Query().Get("topics")), lastID)
	defer s.sseHub.unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	for _, evt := range backlog {
		writeSSEEvent(w, evt)
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-sub.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
