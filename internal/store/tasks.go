package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wayfind/intent-engine/internal/intent"
)

const taskColumns = `id, parent_id, name, spec, status, priority, first_todo_at, first_doing_at, first_done_at`

// priorityOrder sorts by importance ascending (critical first), unset last.
const priorityOrder = `CASE priority
	WHEN 'critical' THEN 0
	WHEN 'high' THEN 1
	WHEN 'medium' THEN 2
	WHEN 'low' THEN 3
	ELSE 4 END`

func scanTask(row interface{ Scan(...any) error }) (*intent.Task, error) {
	var t intent.Task
	var parentID sql.NullInt64
	var priority, firstTodo, firstDoing, firstDone sql.NullString

	err := row.Scan(&t.ID, &parentID, &t.Name, &t.Spec, &t.Status, &priority,
		&firstTodo, &firstDoing, &firstDone)
	if err != nil {
		return nil, err
	}

	t.ParentID = scanNullInt64(parentID)
	t.Priority = intent.Priority(priority.String)
	t.FirstTodoAt = scanNullTime(firstTodo)
	t.FirstDoingAt = scanNullTime(firstDoing)
	t.FirstDoneAt = scanNullTime(firstDone)
	return &t, nil
}

// CreateTask inserts a new task and returns its id. Ids are assigned by
// the store and never reused.
func (x *Tx) CreateTask(ctx context.Context, t *intent.Task) (int64, error) {
	res, err := x.tx.ExecContext(ctx, `
		INSERT INTO tasks (parent_id, name, spec, status, priority, first_todo_at, first_doing_at, first_done_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, nullInt64(t.ParentID), t.Name, t.Spec, t.Status, nullString(string(t.Priority)),
		nullTime(t.FirstTodoAt), nullTime(t.FirstDoingAt), nullTime(t.FirstDoneAt))
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	return id, nil
}

// UpdateTask writes all mutable task fields.
func (x *Tx) UpdateTask(ctx context.Context, t *intent.Task) error {
	res, err := x.tx.ExecContext(ctx, `
		UPDATE tasks
		SET parent_id = ?, name = ?, spec = ?, status = ?, priority = ?,
		    first_todo_at = ?, first_doing_at = ?, first_done_at = ?
		WHERE id = ?
	`, nullInt64(t.ParentID), t.Name, t.Spec, t.Status, nullString(string(t.Priority)),
		nullTime(t.FirstTodoAt), nullTime(t.FirstDoingAt), nullTime(t.FirstDoneAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return intent.ESubject(intent.TagUnknownTask, fmt.Sprintf("task %d", t.ID), "task not found")
	}
	return nil
}

// GetTask fetches a task by id, or nil when absent.
func (x *Tx) GetTask(ctx context.Context, id int64) (*intent.Task, error) {
	row := x.tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

// FindTaskByName looks a task up by its (parent, name) upsert key.
// Returns nil when no task matches; an ambiguity error when more than
// one does.
func (x *Tx) FindTaskByName(ctx context.Context, parentID *int64, name string) (*intent.Task, error) {
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = x.tx.QueryContext(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE parent_id IS NULL AND name = ? ORDER BY id`, name)
	} else {
		rows, err = x.tx.QueryContext(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE parent_id = ? AND name = ? ORDER BY id`, *parentID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query task by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found *intent.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if found != nil {
			return nil, intent.ESubject(intent.TagNameAmbiguous, name,
				"more than one task named %q under the same parent", name)
		}
		found = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return found, nil
}

// FindTaskByNameGlobal scans the whole forest for a task by name.
// Returns nil when none matches; an ambiguity error when several do.
func (x *Tx) FindTaskByNameGlobal(ctx context.Context, name string) (*intent.Task, error) {
	rows, err := x.tx.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE name = ? ORDER BY id LIMIT 2`, name)
	if err != nil {
		return nil, fmt.Errorf("query task by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var found *intent.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if found != nil {
			return nil, intent.ESubject(intent.TagNameAmbiguous, name,
				"task name %q matches more than one task; qualify it with parent_id", name)
		}
		found = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return found, nil
}

// AncestorIDs returns the ids on the chain from the task's parent up to
// its root, nearest first.
func (x *Tx) AncestorIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := x.tx.QueryContext(ctx, `
		WITH RECURSIVE chain(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id, t.parent_id, c.depth + 1
			FROM tasks t JOIN chain c ON t.id = c.parent_id
		)
		SELECT id FROM chain WHERE depth > 0 ORDER BY depth
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var aid int64
		if err := rows.Scan(&aid); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		ids = append(ids, aid)
	}
	return ids, rows.Err()
}

// Ancestors returns the chain from the task's parent up to the root.
func (x *Tx) Ancestors(ctx context.Context, id int64) ([]intent.TaskRef, error) {
	rows, err := x.tx.QueryContext(ctx, `
		WITH RECURSIVE chain(id, parent_id, depth) AS (
			SELECT id, parent_id, 0 FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id, t.parent_id, c.depth + 1
			FROM tasks t JOIN chain c ON t.id = c.parent_id
		)
		SELECT t.id, t.name, t.status, COALESCE(t.priority, '')
		FROM chain c JOIN tasks t ON t.id = c.id
		WHERE c.depth > 0 ORDER BY c.depth
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query ancestors: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRefs(rows)
}

// Children returns the immediate children of a task (or the root tasks
// when parentID is nil), ordered by priority then id.
func (x *Tx) Children(ctx context.Context, parentID *int64) ([]intent.TaskRef, error) {
	query := `SELECT id, name, status, COALESCE(priority, '') FROM tasks WHERE parent_id `
	var rows *sql.Rows
	var err error
	if parentID == nil {
		rows, err = x.tx.QueryContext(ctx, query+`IS NULL ORDER BY `+priorityOrder+`, id`)
	} else {
		rows, err = x.tx.QueryContext(ctx, query+`= ? ORDER BY `+priorityOrder+`, id`, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("query children: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRefs(rows)
}

// Siblings returns tasks sharing the given task's parent, excluding the
// task itself.
func (x *Tx) Siblings(ctx context.Context, id int64, parentID *int64) ([]intent.TaskRef, error) {
	refs, err := x.Children(ctx, parentID)
	if err != nil {
		return nil, err
	}
	out := refs[:0]
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out, nil
}

// IncompleteDescendants returns every descendant of the task whose
// status is not done, for children-first completion checks.
func (x *Tx) IncompleteDescendants(ctx context.Context, id int64) ([]intent.TaskRef, error) {
	rows, err := x.tx.QueryContext(ctx, `
		WITH RECURSIVE sub(id) AS (
			SELECT id FROM tasks WHERE parent_id = ?
			UNION ALL
			SELECT t.id FROM tasks t JOIN sub s ON t.parent_id = s.id
		)
		SELECT t.id, t.name, t.status, COALESCE(t.priority, '')
		FROM tasks t JOIN sub s ON t.id = s.id
		WHERE t.status != 'done'
		ORDER BY t.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query descendants: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRefs(rows)
}

// DeleteTask removes a task; foreign keys cascade the delete to the
// whole subtree and its events.
func (x *Tx) DeleteTask(ctx context.Context, id int64) error {
	res, err := x.tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return intent.ESubject(intent.TagUnknownTask, fmt.Sprintf("task %d", id), "task not found")
	}
	return nil
}

// CountByStatus tallies tasks per status across the project.
func (x *Tx) CountByStatus(ctx context.Context) (intent.WorkspaceStats, error) {
	var stats intent.WorkspaceStats
	rows, err := x.tx.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("count tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, fmt.Errorf("scan count: %w", err)
		}
		switch intent.Status(status) {
		case intent.StatusTodo:
			stats.Todo = n
		case intent.StatusDoing:
			stats.Doing = n
		case intent.StatusDone:
			stats.Done = n
		}
		stats.Total += n
	}
	return stats, rows.Err()
}

func scanRefs(rows *sql.Rows) ([]intent.TaskRef, error) {
	var refs []intent.TaskRef
	for rows.Next() {
		var r intent.TaskRef
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &r.Priority); err != nil {
			return nil, fmt.Errorf("scan task ref: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
