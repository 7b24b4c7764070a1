package engine

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/intent"
	"github.com/wayfind/intent-engine/internal/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

func plan(t *testing.T, e *Engine, payload string) (*intent.PlanReport, error) {
	t.Helper()
	req, err := intent.ParsePlanRequest([]byte(payload))
	require.NoError(t, err)
	return e.Plan(context.Background(), req)
}

func mustPlan(t *testing.T, e *Engine, payload string) *intent.PlanReport {
	t.Helper()
	report, err := plan(t, e, payload)
	require.NoError(t, err)
	return report
}

func snapshot(t *testing.T, e *Engine) *intent.Snapshot {
	t.Helper()
	snap, err := e.Status(context.Background(), StatusOptions{})
	require.NoError(t, err)
	return snap
}

func TestPlanCreateFocusDone(t *testing.T) {
	e := newTestEngine(t)

	report := mustPlan(t, e, `{"tasks":[{"name":"Feature A","status":"doing","spec":"## Goal\nShip A"}]}`)
	require.Len(t, report.Results, 1)
	assert.Equal(t, intent.ActionCreated, report.Results[0].Action)
	assert.Equal(t, intent.StatusDoing, report.Results[0].Status)
	require.NotNil(t, report.CurrentTaskID)
	assert.Equal(t, report.Results[0].ID, *report.CurrentTaskID)

	snap := snapshot(t, e)
	require.NotNil(t, snap.FocusedTask)
	assert.Equal(t, "Feature A", snap.FocusedTask.Name)
	assert.NotNil(t, snap.FocusedTask.FirstTodoAt)
	assert.NotNil(t, snap.FocusedTask.FirstDoingAt)
	assert.Nil(t, snap.FocusedTask.FirstDoneAt)

	event, err := e.Log(context.Background(), intent.LogDecision, "chose X", nil)
	require.NoError(t, err)
	assert.Equal(t, snap.FocusedTask.ID, event.TaskID)

	report = mustPlan(t, e, `{"tasks":[{"name":"Feature A","status":"done"}]}`)
	require.Len(t, report.Results, 1)
	assert.Equal(t, intent.ActionUpdated, report.Results[0].Action)
	assert.Equal(t, intent.StatusDone, report.Results[0].Status)
	assert.Nil(t, report.CurrentTaskID, "completing the focused task clears focus")
}

func TestPlanChildrenFirstCompletion(t *testing.T) {
	e := newTestEngine(t)

	mustPlan(t, e, `{"tasks":[{"name":"P","status":"doing","spec":"parent spec","children":[{"name":"C"}]}]}`)

	_, err := plan(t, e, `{"tasks":[{"name":"P","status":"done"}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagIncompleteChildren, intent.TagOf(err))
	assert.Contains(t, err.Error(), "C")

	// The failed batch must not have committed anything.
	snap := snapshot(t, e)
	require.NotNil(t, snap.FocusedTask)
	assert.Equal(t, intent.StatusDoing, snap.FocusedTask.Status)

	report := mustPlan(t, e, `{"tasks":[{"name":"C","status":"done"},{"name":"P","status":"done"}]}`)
	require.Len(t, report.Results, 2)
	assert.Equal(t, intent.StatusDone, report.Results[0].Status)
	assert.Equal(t, intent.StatusDone, report.Results[1].Status)
}

func TestPlanAutoParentAndExplicitRoot(t *testing.T) {
	e := newTestEngine(t)

	report := mustPlan(t, e, `{"tasks":[{"name":"F","status":"doing","spec":"s"}]}`)
	focusID := report.Results[0].ID

	report = mustPlan(t, e, `{"tasks":[{"name":"Sub","status":"todo"}]}`)
	subID := report.Results[0].ID

	report = mustPlan(t, e, `{"tasks":[{"name":"Other","status":"todo","parent_id":null}]}`)
	otherID := report.Results[0].ID

	err := e.store.WithTx(context.Background(), func(tx *store.Tx) error {
		sub, err := tx.GetTask(context.Background(), subID)
		require.NoError(t, err)
		require.NotNil(t, sub.ParentID)
		assert.Equal(t, focusID, *sub.ParentID, "absent parent_id auto-parents to focus")

		other, err := tx.GetTask(context.Background(), otherID)
		require.NoError(t, err)
		assert.Nil(t, other.ParentID, "null parent_id means root")
		return nil
	})
	require.NoError(t, err)
}

func TestPlanSingleDoingRule(t *testing.T) {
	e := newTestEngine(t)

	_, err := plan(t, e, `{"tasks":[{"name":"A","status":"doing","spec":"s"},{"name":"B","status":"doing","spec":"s"}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagMultipleDoing, intent.TagOf(err))

	snap := snapshot(t, e)
	assert.Zero(t, snap.WorkspaceStats.Total, "failed batch must not commit")
}

func TestPlanSpecRequiredForDoing(t *testing.T) {
	e := newTestEngine(t)

	_, err := plan(t, e, `{"tasks":[{"name":"A","status":"doing"}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagSpecRequired, intent.TagOf(err))

	// An existing spec satisfies the rule on a later batch.
	mustPlan(t, e, `{"tasks":[{"name":"A","spec":"written earlier"}]}`)
	report := mustPlan(t, e, `{"tasks":[{"name":"A","status":"doing"}]}`)
	assert.Equal(t, intent.StatusDoing, report.Results[0].Status)
}

func TestPlanRejectsReverseTransitions(t *testing.T) {
	e := newTestEngine(t)

	mustPlan(t, e, `{"tasks":[{"name":"A","status":"doing","spec":"s"}]}`)
	mustPlan(t, e, `{"tasks":[{"name":"A","status":"done"}]}`)

	for _, target := range []string{"doing", "todo"} {
		_, err := plan(t, e, `{"tasks":[{"name":"A","status":"`+target+`"}]}`)
		require.Error(t, err, target)
		assert.Equal(t, intent.TagIllegalTransition, intent.TagOf(err))
	}
}

func TestPlanIdempotence(t *testing.T) {
	e := newTestEngine(t)
	payload := `{"tasks":[{"name":"Root","spec":"r","children":[{"name":"Kid","priority":"high"}]}]}`

	first := mustPlan(t, e, payload)
	second := mustPlan(t, e, payload)

	require.Len(t, second.Results, 2)
	assert.Equal(t, intent.ActionCreated, first.Results[0].Action)
	assert.Equal(t, intent.ActionUpdated, second.Results[0].Action)
	assert.Equal(t, first.Results[0].ID, second.Results[0].ID, "upsert by name targets the same task")
	assert.Equal(t, first.Results[1].ID, second.Results[1].ID)

	snap := snapshot(t, e)
	assert.Equal(t, 2, snap.WorkspaceStats.Total, "no duplicate tasks")
}

func TestPlanCycleDetection(t *testing.T) {
	e := newTestEngine(t)

	report := mustPlan(t, e, `{"tasks":[{"name":"A","children":[{"name":"B","children":[{"name":"C"}]}]}]}`)
	require.Len(t, report.Results, 3)
	aID := report.Results[0].ID
	cID := report.Results[2].ID

	payload := `{"tasks":[{"name":"A","parent_id":` + itoa(cID) + `}]}`
	_, err := plan(t, e, payload)
	require.Error(t, err)
	assert.Equal(t, intent.TagCycleDetected, intent.TagOf(err))

	_, err = plan(t, e, `{"tasks":[{"name":"A","parent_id":`+itoa(aID)+`}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagCycleDetected, intent.TagOf(err), "self-parenting is a cycle")
}

func TestPlanReparentMovesSubtree(t *testing.T) {
	e := newTestEngine(t)

	report := mustPlan(t, e, `{"tasks":[{"name":"A","children":[{"name":"B"}]},{"name":"Z","parent_id":null}]}`)
	bID := report.Results[1].ID
	zID := report.Results[2].ID

	mustPlan(t, e, `{"tasks":[{"name":"B","parent_id":`+itoa(zID)+`}]}`)

	err := e.store.WithTx(context.Background(), func(tx *store.Tx) error {
		b, err := tx.GetTask(context.Background(), bID)
		require.NoError(t, err)
		require.NotNil(t, b.ParentID)
		assert.Equal(t, zID, *b.ParentID)
		return nil
	})
	require.NoError(t, err)
}

func TestPlanUnknownParent(t *testing.T) {
	e := newTestEngine(t)

	_, err := plan(t, e, `{"tasks":[{"name":"A","parent_id":424242}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagUnknownParent, intent.TagOf(err))
}

func TestPlanTimestampsMonotonic(t *testing.T) {
	e := newTestEngine(t)

	mustPlan(t, e, `{"tasks":[{"name":"A","status":"doing","spec":"s"}]}`)
	report := mustPlan(t, e, `{"tasks":[{"name":"A","status":"done"}]}`)
	id := report.Results[0].ID

	task := getTask(t, e, id)
	require.NotNil(t, task.FirstTodoAt)
	require.NotNil(t, task.FirstDoingAt)
	require.NotNil(t, task.FirstDoneAt)
	assert.False(t, task.FirstDoingAt.Before(*task.FirstTodoAt))
	assert.False(t, task.FirstDoneAt.Before(*task.FirstDoingAt))

	// Re-asserting done must not move the stamp.
	doneAt := *task.FirstDoneAt
	mustPlan(t, e, `{"tasks":[{"name":"A","status":"done"}]}`)
	assert.Equal(t, doneAt, *getTask(t, e, id).FirstDoneAt)
}

func getTask(t *testing.T, e *Engine, id int64) *intent.Task {
	t.Helper()
	var task *intent.Task
	err := e.store.WithTx(context.Background(), func(tx *store.Tx) error {
		var err error
		task, err = tx.GetTask(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	require.NotNil(t, task)
	return task
}

func TestPlanTodoToDoneRequiresNoOpenDescendants(t *testing.T) {
	e := newTestEngine(t)

	mustPlan(t, e, `{"tasks":[{"name":"Leaf"}]}`)
	report := mustPlan(t, e, `{"tasks":[{"name":"Leaf","status":"done"}]}`)
	assert.Equal(t, intent.StatusDone, report.Results[0].Status)

	mustPlan(t, e, `{"tasks":[{"name":"P2","children":[{"name":"C2"}]}]}`)
	_, err := plan(t, e, `{"tasks":[{"name":"P2","status":"done"}]}`)
	require.Error(t, err)
	assert.Equal(t, intent.TagIncompleteChildren, intent.TagOf(err))
}

func TestPlanFocusUnchangedWithoutTransitions(t *testing.T) {
	e := newTestEngine(t)

	report := mustPlan(t, e, `{"tasks":[{"name":"F","status":"doing","spec":"s"}]}`)
	focusID := *report.CurrentTaskID

	report = mustPlan(t, e, `{"tasks":[{"name":"Unrelated","parent_id":null}]}`)
	require.NotNil(t, report.CurrentTaskID)
	assert.Equal(t, focusID, *report.CurrentTaskID)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
