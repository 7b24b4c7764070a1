package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// currentTaskKey is the one mandatory workspace_state key.
const currentTaskKey = "current_task_id"

// GetState reads a workspace_state value, or "" when unset.
func (x *Tx) GetState(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := x.tx.QueryRowContext(ctx,
		`SELECT value FROM workspace_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query workspace state: %w", err)
	}
	return value.String, nil
}

// SetState upserts a workspace_state value. An empty value clears the key.
func (x *Tx) SetState(ctx context.Context, key, value string) error {
	if value == "" {
		if _, err := x.tx.ExecContext(ctx, `DELETE FROM workspace_state WHERE key = ?`, key); err != nil {
			return fmt.Errorf("clear workspace state: %w", err)
		}
		return nil
	}
	if _, err := x.tx.ExecContext(ctx, `
		INSERT INTO workspace_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("set workspace state: %w", err)
	}
	return nil
}

// CurrentTaskID returns the focused task id, or nil when no focus is set.
// A focus pointing at a task that no longer exists is treated as unset.
func (x *Tx) CurrentTaskID(ctx context.Context) (*int64, error) {
	value, err := x.GetState(ctx, currentTaskKey)
	if err != nil || value == "" {
		return nil, err
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, nil
	}
	t, err := x.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return &id, nil
}

// SetCurrentTaskID updates the focus; nil clears it.
func (x *Tx) SetCurrentTaskID(ctx context.Context, id *int64) error {
	if id == nil {
		return x.SetState(ctx, currentTaskKey, "")
	}
	return x.SetState(ctx, currentTaskKey, strconv.FormatInt(*id, 10))
}
