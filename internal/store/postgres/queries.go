package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/store"
)

// defaultListLimit caps ListEvents when the filter leaves Limit unset.
const defaultListLimit = 100

// maxListLimit is the largest Limit honoured by ListEvents.
const maxListLimit = 1000

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO relay_events (topic, agent_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		e.Topic, e.AgentID, jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func queryListEvents(ctx context.Context, db executor, filter store.EventFilter) ([]*model.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.AgentID != "" {
		args = append(args, filter.AgentID)
		where = append(where, fmt.Sprintf("agent_id = $%d", len(args)))
	}
	if filter.Topic != "" {
		args = append(args, filter.Topic)
		where = append(where, fmt.Sprintf("topic = $%d", len(args)))
	}

	query := "SELECT id, topic, agent_id, payload, created_at FROM relay_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}
