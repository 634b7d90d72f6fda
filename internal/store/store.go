// Package store defines the audit log the relay writes its events to.
//
// The audit log is append-only history for operators. The relay never
// reads it back to rebuild its registry, mailbox or report buffer, which
// stay volatile for the lifetime of the process.
package store

import (
	"context"

	"github.com/alfredjeanlab/relay/internal/model"
)

// EventFilter narrows ListEvents. Zero values mean "any".
type EventFilter struct {
	AgentID string
	Topic   string
	Limit   int
}

// Store defines the persistence interface for audit events.
type Store interface {
	// RecordEvent appends e and fills in its ID and CreatedAt.
	RecordEvent(ctx context.Context, e *model.Event) error

	// ListEvents returns matching events, newest first.
	ListEvents(ctx context.Context, filter EventFilter) ([]*model.Event, error)

	// Lifecycle
	Close() error
}
