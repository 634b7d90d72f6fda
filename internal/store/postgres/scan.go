package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/relay/internal/model"
)

type scannable interface {
	Scan(dest ...any) error
}

// jsonbBytes converts a RawMessage to a value suitable for a JSONB column.
// Empty payloads are stored as an empty object.
func jsonbBytes(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte(`{}`)
	}
	return []byte(raw)
}

// scanEvent scans a single row into a model.Event.
func scanEvent(row scannable) (*model.Event, error) {
	var (
		e       model.Event
		payload []byte
	)
	if err := row.Scan(&e.ID, &e.Topic, &e.AgentID, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Payload = json.RawMessage(payload)
	return &e, nil
}

// scanEvents scans multiple rows into a slice of model.Event pointers.
func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	events := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
