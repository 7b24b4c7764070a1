package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfind/intent-engine/internal/intent"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, task *intent.Task) int64 {
	t.Helper()
	var id int64
	err := s.WithTx(context.Background(), func(tx *Tx) error {
		var err error
		id, err = tx.CreateTask(context.Background(), task)
		return err
	})
	require.NoError(t, err)
	return id
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.db")

	s1, err := Open(path)
	require.NoError(t, err)
	v1, err := s1.Version()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v2, err := s2.Version()
	require.NoError(t, err)

	assert.Equal(t, v1, v2, "reopening must not re-apply migrations")
	assert.NoError(t, s2.IntegrityCheck(context.Background()))
}

func TestTaskRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, &intent.Task{Name: "Feature A", Spec: "## Goal", Status: intent.StatusTodo, Priority: intent.PriorityHigh})
	require.Positive(t, id)

	err := s.WithTx(ctx, func(tx *Tx) error {
		got, err := tx.GetTask(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Feature A", got.Name)
		assert.Equal(t, "## Goal", got.Spec)
		assert.Equal(t, intent.StatusTodo, got.Status)
		assert.Equal(t, intent.PriorityHigh, got.Priority)
		assert.Nil(t, got.ParentID)

		missing, err := tx.GetTask(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	})
	require.NoError(t, err)
}

func TestFindTaskByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rootID := mustCreate(t, s, &intent.Task{Name: "P", Status: intent.StatusTodo})
	mustCreate(t, s, &intent.Task{Name: "C", ParentID: &rootID, Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		root, err := tx.FindTaskByName(ctx, nil, "P")
		require.NoError(t, err)
		require.NotNil(t, root)
		assert.Equal(t, rootID, root.ID)

		child, err := tx.FindTaskByName(ctx, &rootID, "C")
		require.NoError(t, err)
		require.NotNil(t, child)

		none, err := tx.FindTaskByName(ctx, &rootID, "missing")
		require.NoError(t, err)
		assert.Nil(t, none)
		return nil
	})
	require.NoError(t, err)
}

func TestAncestorsAndDescendants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, &intent.Task{Name: "a", Status: intent.StatusTodo})
	b := mustCreate(t, s, &intent.Task{Name: "b", ParentID: &a, Status: intent.StatusTodo})
	c := mustCreate(t, s, &intent.Task{Name: "c", ParentID: &b, Status: intent.StatusDone})
	d := mustCreate(t, s, &intent.Task{Name: "d", ParentID: &b, Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		ids, err := tx.AncestorIDs(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, []int64{b, a}, ids, "nearest ancestor first")

		refs, err := tx.Ancestors(ctx, c)
		require.NoError(t, err)
		require.Len(t, refs, 2)
		assert.Equal(t, "b", refs[0].Name)
		assert.Equal(t, "a", refs[1].Name)

		incomplete, err := tx.IncompleteDescendants(ctx, a)
		require.NoError(t, err)
		require.Len(t, incomplete, 2) // b and d; c is done
		assert.Equal(t, b, incomplete[0].ID)
		assert.Equal(t, d, incomplete[1].ID)

		siblings, err := tx.Siblings(ctx, c, &b)
		require.NoError(t, err)
		require.Len(t, siblings, 1)
		assert.Equal(t, d, siblings[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestChildrenOrderedByPriority(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, &intent.Task{Name: "p", Status: intent.StatusTodo})
	low := mustCreate(t, s, &intent.Task{Name: "low", ParentID: &p, Status: intent.StatusTodo, Priority: intent.PriorityLow})
	crit := mustCreate(t, s, &intent.Task{Name: "crit", ParentID: &p, Status: intent.StatusTodo, Priority: intent.PriorityCritical})
	unset := mustCreate(t, s, &intent.Task{Name: "unset", ParentID: &p, Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		children, err := tx.Children(ctx, &p)
		require.NoError(t, err)
		require.Len(t, children, 3)
		assert.Equal(t, crit, children[0].ID)
		assert.Equal(t, low, children[1].ID)
		assert.Equal(t, unset, children[2].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteCascadesSubtreeAndEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := mustCreate(t, s, &intent.Task{Name: "p", Status: intent.StatusTodo})
	c := mustCreate(t, s, &intent.Task{Name: "c", ParentID: &p, Status: intent.StatusTodo})
	g := mustCreate(t, s, &intent.Task{Name: "g", ParentID: &c, Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.InsertEvent(ctx, &intent.Event{TaskID: g, LogType: intent.LogNote, Message: "deep note"})
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		return tx.DeleteTask(ctx, p)
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		for _, id := range []int64{p, c, g} {
			got, err := tx.GetTask(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, got, "task %d should be cascade-deleted", id)
		}
		events, err := tx.RecentEvents(ctx, g, 10)
		require.NoError(t, err)
		assert.Empty(t, events)

		stats, err := tx.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.Total)
		return nil
	})
	require.NoError(t, err)
}

func TestWorkspaceState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, &intent.Task{Name: "f", Status: intent.StatusDoing, Spec: "s"})

	err := s.WithTx(ctx, func(tx *Tx) error {
		cur, err := tx.CurrentTaskID(ctx)
		require.NoError(t, err)
		assert.Nil(t, cur)

		require.NoError(t, tx.SetCurrentTaskID(ctx, &id))
		cur, err = tx.CurrentTaskID(ctx)
		require.NoError(t, err)
		require.NotNil(t, cur)
		assert.Equal(t, id, *cur)

		require.NoError(t, tx.SetCurrentTaskID(ctx, nil))
		cur, err = tx.CurrentTaskID(ctx)
		require.NoError(t, err)
		assert.Nil(t, cur)
		return nil
	})
	require.NoError(t, err)
}

func TestFocusOnDeletedTaskReadsAsUnset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, &intent.Task{Name: "f", Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		require.NoError(t, tx.SetCurrentTaskID(ctx, &id))
		return tx.DeleteTask(ctx, id)
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		cur, err := tx.CurrentTaskID(ctx)
		require.NoError(t, err)
		assert.Nil(t, cur, "dangling focus must read as none")
		return nil
	})
	require.NoError(t, err)
}

func TestTransactionRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.CreateTask(ctx, &intent.Task{Name: "ghost", Status: intent.StatusTodo})
		require.NoError(t, err)
		return assert.AnError
	})
	require.Error(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		got, err := tx.FindTaskByName(ctx, nil, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got, "rolled-back insert must not be visible")
		return nil
	})
	require.NoError(t, err)
}

func TestEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, &intent.Task{Name: "t", Status: intent.StatusTodo})

	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, msg := range []string{"one", "two", "three"} {
			if _, err := tx.InsertEvent(ctx, &intent.Event{TaskID: id, LogType: intent.LogNote, Message: msg}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *Tx) error {
		events, err := tx.RecentEvents(ctx, id, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "three", events[0].Message, "newest first")
		assert.Equal(t, "two", events[1].Message)
		assert.False(t, events[0].Timestamp.IsZero())
		return nil
	})
	require.NoError(t, err)
}
