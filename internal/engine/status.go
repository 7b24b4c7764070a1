package engine

import (
	"context"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/store"
)

// DefaultRecentEvents is how many events a snapshot carries unless the
// caller overrides it.
const DefaultRecentEvents = 5

// StatusOptions control snapshot assembly.
type StatusOptions struct {
	// TaskID targets a specific task; nil means the current focus.
	TaskID *int64
	// IncludeEvents is the number of recent events; <= 0 means default.
	IncludeEvents int
}

// Status assembles the context snapshot that restores a fresh session:
// the focused task, its ancestors, siblings, immediate children, recent
// events, and project-wide counts. A missing target yields a well-formed
// not-found snapshot, never an error.
func (e *Engine) Status(ctx context.Context, opts StatusOptions) (*intent.Snapshot, error) {
	n := opts.IncludeEvents
	if n <= 0 {
		n = DefaultRecentEvents
	}

	var snap *intent.Snapshot
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		s, err := projectSnapshot(ctx, tx, opts.TaskID, n)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func projectSnapshot(ctx context.Context, tx *store.Tx, taskID *int64, events int) (*intent.Snapshot, error) {
	snap := &intent.Snapshot{
		Ancestors:    []intent.TaskRef{},
		Siblings:     []intent.TaskRef{},
		Children:     []intent.TaskRef{},
		RecentEvents: []intent.Event{},
	}

	stats, err := tx.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	snap.WorkspaceStats = stats

	target := taskID
	if target == nil {
		target, err = tx.CurrentTaskID(ctx)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return snap, nil // no focus: stats-only snapshot
		}
	}

	task, err := tx.GetTask(ctx, *target)
	if err != nil {
		return nil, err
	}
	if task == nil {
		snap.NotFound = true
		return snap, nil
	}
	snap.FocusedTask = task

	if snap.Ancestors, err = tx.Ancestors(ctx, task.ID); err != nil {
		return nil, err
	}
	if snap.Siblings, err = tx.Siblings(ctx, task.ID, task.ParentID); err != nil {
		return nil, err
	}
	if snap.Children, err = tx.Children(ctx, &task.ID); err != nil {
		return nil, err
	}
	if snap.RecentEvents, err = tx.RecentEvents(ctx, task.ID, events); err != nil {
		return nil, err
	}

	// JSON consumers always get arrays, never null.
	if snap.Ancestors == nil {
		snap.Ancestors = []intent.TaskRef{}
	}
	if snap.Siblings == nil {
		snap.Siblings = []intent.TaskRef{}
	}
	if snap.Children == nil {
		snap.Children = []intent.TaskRef{}
	}
	if snap.RecentEvents == nil {
		snap.RecentEvents = []intent.Event{}
	}
	return snap, nil
}
