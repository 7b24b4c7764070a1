package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wayfind/intent-engine/internal/intent"
)

// InsertEvent appends an event to a task. The timestamp is assigned by
// the store in UTC.
func (x *Tx) InsertEvent(ctx context.Context, e *intent.Event) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = x.now()
	}
	res, err := x.tx.ExecContext(ctx, `
		INSERT INTO events (task_id, log_type, message, timestamp)
		VALUES (?, ?, ?, ?)
	`, e.TaskID, e.LogType, e.Message, formatTime(e.Timestamp))
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event id: %w", err)
	}
	e.ID = id
	return id, nil
}

// RecentEvents returns the n most recent events on a task, newest first.
func (x *Tx) RecentEvents(ctx context.Context, taskID int64, n int) ([]intent.Event, error) {
	rows, err := x.tx.QueryContext(ctx, `
		SELECT id, task_id, log_type, message, timestamp
		FROM events WHERE task_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, taskID, n)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]intent.Event, error) {
	var events []intent.Event
	for rows.Next() {
		var e intent.Event
		var ts string
		if err := rows.Scan(&e.ID, &e.TaskID, &e.LogType, &e.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = parseTime(ts)
		events = append(events, e)
	}
	return events, rows.Err()
}
