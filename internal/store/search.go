package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wayfind/intent-engine/internal/intent"
)

// ftsMatchExpr quotes a user query as a single FTS5 phrase so that
// operator characters cannot alter the match expression.
func ftsMatchExpr(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// likePattern escapes LIKE wildcards in a user query. Callers pair it
// with ESCAPE '\'.
func likePattern(query string) string {
	q := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
	return "%" + q + "%"
}

// timeWindow appends since/until conditions on the events timestamp.
func timeWindow(conds []string, args []any, since, until *time.Time) ([]string, []any) {
	if since != nil {
		conds = append(conds, "e.timestamp >= ?")
		args = append(args, formatTime(*since))
	}
	if until != nil {
		conds = append(conds, "e.timestamp <= ?")
		args = append(args, formatTime(*until))
	}
	return conds, args
}

// SearchTasksFTS runs the trigram full-text path over tasks, ordered by
// relevance. Snippets delimit the matched span with **…**.
func (x *Tx) SearchTasksFTS(ctx context.Context, query string, limit, offset int) ([]intent.SearchHit, int, error) {
	match := ftsMatchExpr(query)

	var total int
	if err := x.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks_fts WHERE tasks_fts MATCH ?`, match).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count task matches: %w", err)
	}

	rows, err := x.tx.QueryContext(ctx, `
		SELECT t.id, t.name, t.status,
		       snippet(tasks_fts, 0, '**', '**', '…', 12),
		       snippet(tasks_fts, 1, '**', '**', '…', 12)
		FROM tasks_fts JOIN tasks t ON t.id = tasks_fts.rowid
		WHERE tasks_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, match, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []intent.SearchHit
	for rows.Next() {
		var h intent.SearchHit
		var nameSnip, specSnip string
		if err := rows.Scan(&h.ID, &h.Name, &h.Status, &nameSnip, &specSnip); err != nil {
			return nil, 0, fmt.Errorf("scan task hit: %w", err)
		}
		h.Kind = intent.HitTask
		h.TaskID = h.ID
		// Prefer the spec snippet when the match landed there.
		if strings.Contains(specSnip, "**") {
			h.Snippet, h.Field = specSnip, "spec"
		} else {
			h.Snippet, h.Field = nameSnip, "name"
		}
		hits = append(hits, h)
	}
	return hits, total, rows.Err()
}

// SearchEventsFTS runs the trigram full-text path over event messages.
func (x *Tx) SearchEventsFTS(ctx context.Context, query string, limit, offset int, since, until *time.Time) ([]intent.SearchHit, int, error) {
	match := ftsMatchExpr(query)

	conds := []string{"events_fts MATCH ?"}
	args := []any{match}
	conds, args = timeWindow(conds, args, since, until)
	where := strings.Join(conds, " AND ")

	var total int
	countArgs := append([]any{}, args...)
	if err := x.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events_fts JOIN events e ON e.id = events_fts.rowid
		WHERE `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count event matches: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := x.tx.QueryContext(ctx, `
		SELECT e.id, e.task_id, e.log_type,
		       snippet(events_fts, 0, '**', '**', '…', 12)
		FROM events_fts JOIN events e ON e.id = events_fts.rowid
		WHERE `+where+`
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []intent.SearchHit
	for rows.Next() {
		var h intent.SearchHit
		if err := rows.Scan(&h.ID, &h.TaskID, &h.LogType, &h.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan event hit: %w", err)
		}
		h.Kind = intent.HitEvent
		h.Field = "message"
		hits = append(hits, h)
	}
	return hits, total, rows.Err()
}

// SearchTasksLike runs the substring fallback over tasks.name and
// tasks.spec, ordered by id. The caller synthesizes snippets.
func (x *Tx) SearchTasksLike(ctx context.Context, query string, limit, offset int) ([]intent.Task, int, error) {
	pattern := likePattern(query)

	var total int
	if err := x.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE name LIKE ? ESCAPE '\' OR spec LIKE ? ESCAPE '\'
	`, pattern, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count task matches: %w", err)
	}

	rows, err := x.tx.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE name LIKE ? ESCAPE '\' OR spec LIKE ? ESCAPE '\'
		ORDER BY id
		LIMIT ? OFFSET ?
	`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []intent.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, rows.Err()
}

// SearchEventsLike runs the substring fallback over event messages.
func (x *Tx) SearchEventsLike(ctx context.Context, query string, limit, offset int, since, until *time.Time) ([]intent.Event, int, error) {
	pattern := likePattern(query)

	conds := []string{`e.message LIKE ? ESCAPE '\'`}
	args := []any{pattern}
	conds, args = timeWindow(conds, args, since, until)
	where := strings.Join(conds, " AND ")

	var total int
	countArgs := append([]any{}, args...)
	if err := x.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events e WHERE `+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count event matches: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := x.tx.QueryContext(ctx, `
		SELECT e.id, e.task_id, e.log_type, e.message, e.timestamp
		FROM events e WHERE `+where+`
		ORDER BY e.id
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	events, err := scanEvents(rows)
	return events, total, err
}

// TasksByStatus returns tasks matching any of the given statuses,
// ordered by id descending, for status-filter queries.
func (x *Tx) TasksByStatus(ctx context.Context, statuses []intent.Status, limit, offset int) ([]intent.Task, int, error) {
	if len(statuses) == 0 {
		return nil, 0, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		placeholders[i] = "?"
		args[i] = string(s)
	}
	in := strings.Join(placeholders, ", ")

	var total int
	countArgs := append([]any{}, args...)
	if err := x.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE status IN (`+in+`)`, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks by status: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := x.tx.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status IN (`+in+`)
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []intent.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, total, rows.Err()
}
