package engine

import (
	"context"
	"fmt"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/store"
)

// Log appends a typed event to the given task, or to the current focus
// when taskID is nil. The store assigns the timestamp.
func (e *Engine) Log(ctx context.Context, logType intent.LogType, message string, taskID *int64) (*intent.Event, error) {
	event := &intent.Event{LogType: logType, Message: message}
	if err := event.Validate(); err != nil {
		return nil, intent.Wrap(intent.TagInvalidJSON, err, "%v", err)
	}

	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		target := taskID
		if target == nil {
			focus, err := tx.CurrentTaskID(ctx)
			if err != nil {
				return err
			}
			if focus == nil {
				return intent.E(intent.TagNoFocusedTask,
					"no task is focused; pass --task or start one with plan")
			}
			target = focus
		}

		task, err := tx.GetTask(ctx, *target)
		if err != nil {
			return err
		}
		if task == nil {
			return intent.ESubject(intent.TagUnknownTask, fmt.Sprintf("task %d", *target),
				"task %d does not exist", *target)
		}

		event.TaskID = task.ID
		_, err = tx.InsertEvent(ctx, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
