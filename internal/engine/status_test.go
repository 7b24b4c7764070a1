package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/intent"
)

func TestStatusNoFocus(t *testing.T) {
	e := newTestEngine(t)
	mustPlan(t, e, `{"tasks":[{"name":"a"},{"name":"b"}]}`)

	snap := snapshot(t, e)
	assert.Nil(t, snap.FocusedTask)
	assert.False(t, snap.NotFound)
	assert.Equal(t, 2, snap.WorkspaceStats.Todo)
	assert.Equal(t, 2, snap.WorkspaceStats.Total)
}

func TestStatusFocusedNeighborhood(t *testing.T) {
	e := newTestEngine(t)

	mustPlan(t, e, `{"tasks":[{"name":"Root","spec":"r","children":[
		{"name":"Mid","spec":"m","children":[{"name":"Kid A"},{"name":"Kid B"}]},
		{"name":"Uncle"}
	]}]}`)
	mustPlan(t, e, `{"tasks":[{"name":"Mid","status":"doing"}]}`)

	snap := snapshot(t, e)
	require.NotNil(t, snap.FocusedTask)
	assert.Equal(t, "Mid", snap.FocusedTask.Name)
	assert.Equal(t, intent.StatusDoing, snap.FocusedTask.Status)

	require.Len(t, snap.Ancestors, 1)
	assert.Equal(t, "Root", snap.Ancestors[0].Name)

	require.Len(t, snap.Siblings, 1)
	assert.Equal(t, "Uncle", snap.Siblings[0].Name)

	require.Len(t, snap.Children, 2)
	assert.Equal(t, "Kid A", snap.Children[0].Name)
	assert.Equal(t, "Kid B", snap.Children[1].Name)
}

func TestStatusRecentEventsLimit(t *testing.T) {
	e := newTestEngine(t)
	mustPlan(t, e, `{"tasks":[{"name":"F","status":"doing","spec":"s"}]}`)

	for _, msg := range []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"} {
		_, err := e.Log(context.Background(), intent.LogNote, msg, nil)
		require.NoError(t, err)
	}

	snap := snapshot(t, e)
	assert.Len(t, snap.RecentEvents, DefaultRecentEvents)
	assert.Equal(t, "e7", snap.RecentEvents[0].Message, "newest first")

	snap, err := e.Status(context.Background(), StatusOptions{IncludeEvents: 2})
	require.NoError(t, err)
	assert.Len(t, snap.RecentEvents, 2)
}

func TestStatusExplicitTarget(t *testing.T) {
	e := newTestEngine(t)
	report := mustPlan(t, e, `{"tasks":[{"name":"a"},{"name":"b"}]}`)
	target := report.Results[1].ID

	snap, err := e.Status(context.Background(), StatusOptions{TaskID: &target})
	require.NoError(t, err)
	require.NotNil(t, snap.FocusedTask)
	assert.Equal(t, "b", snap.FocusedTask.Name)
}

func TestStatusUnknownTargetIsWellFormed(t *testing.T) {
	e := newTestEngine(t)
	mustPlan(t, e, `{"tasks":[{"name":"a"}]}`)

	missing := int64(424242)
	snap, err := e.Status(context.Background(), StatusOptions{TaskID: &missing})
	require.NoError(t, err, "a missing task is a result, not an error")
	assert.True(t, snap.NotFound)
	assert.Nil(t, snap.FocusedTask)
	assert.NotNil(t, snap.Ancestors)
	assert.Equal(t, 1, snap.WorkspaceStats.Total)
}
