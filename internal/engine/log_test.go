package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/intent"
)

func TestLogRequiresFocusOrTask(t *testing.T) {
	e := newTestEngine(t)
	mustPlan(t, e, `{"tasks":[{"name":"a"}]}`)

	_, err := e.Log(context.Background(), intent.LogBlocker, "stuck", nil)
	require.Error(t, err)
	assert.Equal(t, intent.TagNoFocusedTask, intent.TagOf(err))
}

func TestLogExplicitTask(t *testing.T) {
	e := newTestEngine(t)
	report := mustPlan(t, e, `{"tasks":[{"name":"a"}]}`)
	id := report.Results[0].ID

	event, err := e.Log(context.Background(), intent.LogMilestone, "first cut", &id)
	require.NoError(t, err)
	assert.Equal(t, id, event.TaskID)
	assert.Positive(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestLogUnknownTask(t *testing.T) {
	e := newTestEngine(t)

	missing := int64(99)
	_, err := e.Log(context.Background(), intent.LogNote, "m", &missing)
	require.Error(t, err)
	assert.Equal(t, intent.TagUnknownTask, intent.TagOf(err))
}

func TestLogRejectsBadInput(t *testing.T) {
	e := newTestEngine(t)
	mustPlan(t, e, `{"tasks":[{"name":"a","status":"doing","spec":"s"}]}`)

	_, err := e.Log(context.Background(), "opinion", "m", nil)
	assert.Error(t, err)

	_, err = e.Log(context.Background(), intent.LogNote, "   ", nil)
	assert.Error(t, err)
}
