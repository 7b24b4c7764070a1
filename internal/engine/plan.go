package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/store"
)

// Plan evaluates a declarative batch of task descriptors. The whole
// batch commits atomically; any violation rolls everything back.
func (e *Engine) Plan(ctx context.Context, req *intent.PlanRequest) (*intent.PlanReport, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	var report *intent.PlanReport
	err := e.store.WithTx(ctx, func(tx *store.Tx) error {
		ev := &planEval{engine: e, tx: tx}
		r, err := ev.run(ctx, req)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// validateRequest performs the structural checks that need no database:
// names, enum values, the single-doing rule, and doing-without-any-spec
// on creates is deferred to apply time (the existing spec may satisfy it).
func (e *Engine) validateRequest(req *intent.PlanRequest) error {
	if err := e.validate.Struct(req); err != nil {
		return intent.Wrap(intent.TagInvalidJSON, err, "invalid plan input: %v", err)
	}

	doing := 0
	for _, d := range req.Flatten() {
		if strings.TrimSpace(d.Name) == "" {
			return intent.E(intent.TagInvalidJSON, "descriptor name must be non-empty")
		}
		if d.Status == intent.StatusDoing {
			doing++
		}
	}
	if doing > 1 {
		return intent.E(intent.TagMultipleDoing,
			"a plan batch may assert status=doing on at most one task, got %d", doing)
	}
	return nil
}

// planEval carries per-batch state through descriptor application.
type planEval struct {
	engine *Engine
	tx     *store.Tx

	results     []intent.DescriptorResult
	doneTargets []doneTarget // children-first checks, deferred to batch end
	focusTarget *int64       // task asserted doing in this batch
}

type doneTarget struct {
	id   int64
	name string
}

func (p *planEval) run(ctx context.Context, req *intent.PlanRequest) (*intent.PlanReport, error) {
	focus, err := p.tx.CurrentTaskID(ctx)
	if err != nil {
		return nil, err
	}

	for i := range req.Tasks {
		if err := p.apply(ctx, &req.Tasks[i], nil, focus); err != nil {
			return nil, err
		}
	}

	// Children-first completion: a task may only end the batch as done
	// when every descendant ended it as done too.
	for _, dt := range p.doneTargets {
		incomplete, err := p.tx.IncompleteDescendants(ctx, dt.id)
		if err != nil {
			return nil, err
		}
		if len(incomplete) > 0 {
			names := make([]string, 0, len(incomplete))
			for _, r := range incomplete {
				names = append(names, fmt.Sprintf("%q (#%d, %s)", r.Name, r.ID, r.Status))
			}
			return nil, intent.ESubject(intent.TagIncompleteChildren, dt.name,
				"cannot complete %q while descendants are unfinished: %s",
				dt.name, strings.Join(names, ", "))
		}
	}

	if err := p.updateFocus(ctx, focus); err != nil {
		return nil, err
	}

	current, err := p.tx.CurrentTaskID(ctx)
	if err != nil {
		return nil, err
	}
	return &intent.PlanReport{Results: p.results, CurrentTaskID: current}, nil
}

// apply resolves and executes one descriptor, then recurses into its
// children with this task as their parent context.
func (p *planEval) apply(ctx context.Context, d *intent.Descriptor, enclosing *int64, focus *int64) error {
	task, effParent, err := p.resolve(ctx, d, enclosing, focus)
	if err != nil {
		return err
	}

	var result intent.DescriptorResult
	if task == nil {
		task, err = p.create(ctx, d, effParent)
		if err != nil {
			return err
		}
		result = intent.DescriptorResult{Name: d.Name, ID: task.ID, Action: intent.ActionCreated, Status: task.Status}
	} else {
		updated, diags, err := p.update(ctx, d, task)
		if err != nil {
			return err
		}
		result = intent.DescriptorResult{Name: d.Name, ID: updated.ID, Action: intent.ActionUpdated, Status: updated.Status, Diagnostics: diags}
		task = updated
	}
	p.results = append(p.results, result)

	for i := range d.Children {
		if err := p.apply(ctx, &d.Children[i], &task.ID, focus); err != nil {
			return err
		}
	}
	return nil
}

// resolve computes the descriptor's effective parent context and looks
// up the targeted task by (parent, name).
//
// Parent context, in order: an explicit parent_id (integer or null),
// the enclosing children parent, or — for top-level descriptors with an
// absent parent — the current focus. A top-level descriptor with an
// absent parent may also target the focused task itself or, failing
// that, a uniquely named task anywhere in the forest, so that batches
// like {"name": "Feature A", "status": "done"} keep working after focus
// moved onto Feature A.
func (p *planEval) resolve(ctx context.Context, d *intent.Descriptor, enclosing *int64, focus *int64) (*intent.Task, *int64, error) {
	switch {
	case d.HasParent:
		if d.ParentID != nil {
			parent, err := p.tx.GetTask(ctx, *d.ParentID)
			if err != nil {
				return nil, nil, err
			}
			if parent == nil {
				return nil, nil, intent.ESubject(intent.TagUnknownParent, d.Name,
					"parent task %d does not exist", *d.ParentID)
			}
		}
		task, err := p.lookupForExplicitParent(ctx, d)
		return task, d.ParentID, err

	case enclosing != nil:
		task, err := p.tx.FindTaskByName(ctx, enclosing, d.Name)
		return task, enclosing, err

	default:
		return p.resolveAgainstFocus(ctx, d, focus)
	}
}

// lookupForExplicitParent finds the task a reparenting descriptor
// targets: first under the asserted parent (idempotent re-run), then by
// unique name anywhere (the move itself).
func (p *planEval) lookupForExplicitParent(ctx context.Context, d *intent.Descriptor) (*intent.Task, error) {
	task, err := p.tx.FindTaskByName(ctx, d.ParentID, d.Name)
	if err != nil || task != nil {
		return task, err
	}
	return p.findUniqueByName(ctx, d.Name)
}

// resolveAgainstFocus handles top-level descriptors with no parent_id.
func (p *planEval) resolveAgainstFocus(ctx context.Context, d *intent.Descriptor, focus *int64) (*intent.Task, *int64, error) {
	if focus != nil {
		// A child of the focused task wins.
		task, err := p.tx.FindTaskByName(ctx, focus, d.Name)
		if err != nil {
			return nil, nil, err
		}
		if task != nil {
			return task, focus, nil
		}
		// The focused task itself.
		ft, err := p.tx.GetTask(ctx, *focus)
		if err != nil {
			return nil, nil, err
		}
		if ft != nil && ft.Name == d.Name {
			return ft, ft.ParentID, nil
		}
	}

	// A uniquely named task anywhere in the forest.
	task, err := p.findUniqueByName(ctx, d.Name)
	if err != nil {
		return nil, nil, err
	}
	if task != nil {
		return task, task.ParentID, nil
	}

	// Create: auto-parent to the focus (root when none).
	return nil, focus, nil
}

// findUniqueByName scans the forest for a task with the given name.
// Returns nil when none exists, an ambiguity error when several do.
func (p *planEval) findUniqueByName(ctx context.Context, name string) (*intent.Task, error) {
	task, err := p.tx.FindTaskByNameGlobal(ctx, name)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// create inserts a new task from a descriptor.
func (p *planEval) create(ctx context.Context, d *intent.Descriptor, parent *int64) (*intent.Task, error) {
	now := p.engine.now()
	status := d.Status
	if status == "" {
		status = intent.StatusTodo
	}

	t := &intent.Task{
		ParentID:    parent,
		Name:        d.Name,
		Status:      intent.StatusTodo,
		Priority:    d.Priority,
		FirstTodoAt: &now,
	}
	if d.Spec != nil {
		t.Spec = *d.Spec
	}

	if _, err := p.tx.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	if status != intent.StatusTodo {
		if err := p.transition(ctx, t, status); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// update applies a descriptor to an existing task: reparent, field
// updates, then the status transition.
func (p *planEval) update(ctx context.Context, d *intent.Descriptor, task *intent.Task) (*intent.Task, []string, error) {
	var diags []string

	if d.HasParent && !sameParent(d.ParentID, task.ParentID) {
		if err := p.checkCycle(ctx, task.ID, d.ParentID); err != nil {
			return nil, nil, err
		}
		task.ParentID = d.ParentID
		if d.ParentID == nil {
			diags = append(diags, "moved to root")
		} else {
			diags = append(diags, fmt.Sprintf("reparented under task %d", *d.ParentID))
		}
	}
	if d.Spec != nil {
		task.Spec = *d.Spec
	}
	if d.Priority != "" {
		task.Priority = d.Priority
	}

	if d.Status != "" && d.Status != task.Status {
		if err := p.transition(ctx, task, d.Status); err != nil {
			return nil, nil, err
		}
	} else {
		if err := p.tx.UpdateTask(ctx, task); err != nil {
			return nil, nil, err
		}
		if d.Status == intent.StatusDoing {
			// Re-asserting doing keeps this task the batch focus target.
			p.focusTarget = &task.ID
		}
	}
	return task, diags, nil
}

// transition moves a task forward along todo → doing → done, stamping
// first-entry timestamps and recording focus effects. Reverse moves are
// rejected.
func (p *planEval) transition(ctx context.Context, task *intent.Task, next intent.Status) error {
	if !task.Status.CanTransition(next) {
		return intent.ESubject(intent.TagIllegalTransition, task.Name,
			"cannot move %q from %s back to %s", task.Name, task.Status, next)
	}

	now := p.engine.now()
	switch next {
	case intent.StatusDoing:
		if strings.TrimSpace(task.Spec) == "" {
			return intent.ESubject(intent.TagSpecRequired, task.Name,
				"task %q needs a non-empty spec before entering doing", task.Name)
		}
		if task.FirstDoingAt == nil {
			task.FirstDoingAt = &now
		}
		p.focusTarget = &task.ID

	case intent.StatusDone:
		if task.FirstDoneAt == nil {
			task.FirstDoneAt = &now
		}
		p.doneTargets = append(p.doneTargets, doneTarget{id: task.ID, name: task.Name})
	}

	task.Status = next
	return p.tx.UpdateTask(ctx, task)
}

// checkCycle rejects reparenting a task under itself or any of its
// descendants.
func (p *planEval) checkCycle(ctx context.Context, taskID int64, newParent *int64) error {
	if newParent == nil {
		return nil
	}
	if *newParent == taskID {
		return intent.E(intent.TagCycleDetected, "task %d cannot be its own parent", taskID)
	}
	ancestors, err := p.tx.AncestorIDs(ctx, *newParent)
	if err != nil {
		return err
	}
	for _, id := range ancestors {
		if id == taskID {
			return intent.E(intent.TagCycleDetected,
				"reparenting task %d under %d would create a cycle", taskID, *newParent)
		}
	}
	return nil
}

// updateFocus applies the batch's focus effects: a task entering doing
// takes the focus; the focused task completing clears it.
func (p *planEval) updateFocus(ctx context.Context, before *int64) error {
	if p.focusTarget != nil {
		// A task that entered doing and then done in the same batch is
		// finished, not focused.
		for _, dt := range p.doneTargets {
			if dt.id == *p.focusTarget {
				return p.tx.SetCurrentTaskID(ctx, nil)
			}
		}
		return p.tx.SetCurrentTaskID(ctx, p.focusTarget)
	}
	if before == nil {
		return nil
	}
	for _, dt := range p.doneTargets {
		if dt.id == *before {
			return p.tx.SetCurrentTaskID(ctx, nil)
		}
	}
	return nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
