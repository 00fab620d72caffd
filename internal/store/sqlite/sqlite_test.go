package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"kanban/internal/server/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTask(title string) *ports.Task {
	return &ports.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    ports.TaskStatusTodo,
		Type:      ports.TaskTypeNeutral,
		Source:    ports.TaskSourceAPI,
		CreatedAt: time.Now(),
	}
}

func TestTaskRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("Build X")
	task.Description = "a description"
	task.Steps = []ports.Step{{Text: "first", Done: false}, {Text: "second", Done: true}}
	require.NoError(t, db.Tasks().Insert(ctx, task))

	got, err := db.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, "Build X", got.Title)
	require.Equal(t, ports.TaskStatusTodo, got.Status)
	require.Len(t, got.Steps, 2)
	require.True(t, got.Steps[1].Done)

	got.Status = ports.TaskStatusDone
	got.Result = "all done"
	require.NoError(t, db.Tasks().Update(ctx, got))

	updated, err := db.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, ports.TaskStatusDone, updated.Status)
	require.Equal(t, "all done", updated.Result)
}

func TestTaskNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Tasks().Get(context.Background(), "missing")
	require.ErrorIs(t, err, ports.ErrNotFound)

	err = db.Tasks().Delete(context.Background(), "missing")
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestListChildrenOrderedByCreation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	parent := newTask("parent")
	require.NoError(t, db.Tasks().Insert(ctx, parent))

	base := time.Now()
	// Insert out of order to prove ordering comes from created_at.
	for i, title := range []string{"third", "first", "second"} {
		offsets := map[string]time.Duration{"first": 0, "second": time.Second, "third": 2 * time.Second}
		child := newTask(title)
		child.ParentID = parent.ID
		child.CreatedAt = base.Add(offsets[title])
		require.NoError(t, db.Tasks().Insert(ctx, child), "child %d", i)
	}

	children, err := db.Tasks().ListChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	require.Equal(t, "first", children[0].Title)
	require.Equal(t, "second", children[1].Title)
	require.Equal(t, "third", children[2].Title)
}

func TestProjectRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	project := &ports.Project{
		ID:            uuid.NewString(),
		Name:          "demo",
		WorkspacePath: "/tmp/demo",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, db.Projects().Insert(ctx, project))

	got, err := db.Projects().Get(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, "/tmp/demo", got.WorkspacePath)

	list, err := db.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, db.Projects().Delete(ctx, project.ID))
	_, err = db.Projects().Get(ctx, project.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRunActiveUniqueConstraint(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("busy")
	require.NoError(t, db.Tasks().Insert(ctx, task))

	first := &ports.Run{ID: uuid.NewString(), TaskID: task.ID, Status: ports.RunStatusPending, CreatedAt: time.Now()}
	require.NoError(t, db.Runs().Insert(ctx, first))

	second := &ports.Run{ID: uuid.NewString(), TaskID: task.ID, Status: ports.RunStatusPending, CreatedAt: time.Now()}
	err := db.Runs().Insert(ctx, second)
	require.ErrorIs(t, err, ports.ErrActiveRunExists)

	// Once the first run is terminal a new run may be inserted.
	now := time.Now()
	first.Status = ports.RunStatusCompleted
	first.CompletedAt = &now
	require.NoError(t, db.Runs().Update(ctx, first))
	require.NoError(t, db.Runs().Insert(ctx, second))
}

func TestRunListFiltersNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	taskA := newTask("a")
	taskB := newTask("b")
	require.NoError(t, db.Tasks().Insert(ctx, taskA))
	require.NoError(t, db.Tasks().Insert(ctx, taskB))

	base := time.Now()
	older := &ports.Run{ID: uuid.NewString(), TaskID: taskA.ID, Status: ports.RunStatusCompleted, CreatedAt: base}
	newer := &ports.Run{ID: uuid.NewString(), TaskID: taskA.ID, Status: ports.RunStatusFailed, CreatedAt: base.Add(time.Second)}
	other := &ports.Run{ID: uuid.NewString(), TaskID: taskB.ID, Status: ports.RunStatusPending, CreatedAt: base.Add(2 * time.Second)}
	for _, run := range []*ports.Run{older, newer, other} {
		require.NoError(t, db.Runs().Insert(ctx, run))
	}

	runs, err := db.Runs().List(ctx, ports.RunFilter{TaskID: taskA.ID})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, newer.ID, runs[0].ID)

	failed, err := db.Runs().List(ctx, ports.RunFilter{Status: ports.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, newer.ID, failed[0].ID)
}

func TestActiveForTask(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("active")
	require.NoError(t, db.Tasks().Insert(ctx, task))

	_, err := db.Runs().ActiveForTask(ctx, task.ID)
	require.ErrorIs(t, err, ports.ErrNotFound)

	run := &ports.Run{ID: uuid.NewString(), TaskID: task.ID, Status: ports.RunStatusRunning, CreatedAt: time.Now()}
	require.NoError(t, db.Runs().Insert(ctx, run))

	active, err := db.Runs().ActiveForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, active.ID)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Settings().Get(ctx, "theme")
	require.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, db.Settings().Set(ctx, "theme", "dark"))
	require.NoError(t, db.Settings().Set(ctx, "theme", "light"))

	value, err := db.Settings().Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "light", value)

	all, err := db.Settings().All(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"theme": "light"}, all)
}

func TestRunNullableTimestamps(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	task := newTask("timestamps")
	require.NoError(t, db.Tasks().Insert(ctx, task))

	run := &ports.Run{ID: uuid.NewString(), TaskID: task.ID, Status: ports.RunStatusPending, CreatedAt: time.Now()}
	require.NoError(t, db.Runs().Insert(ctx, run))

	got, err := db.Runs().Get(ctx, run.ID)
	require.NoError(t, err)
	require.Nil(t, got.StartedAt)
	require.Nil(t, got.CompletedAt)

	started := time.Now()
	got.Status = ports.RunStatusRunning
	got.StartedAt = &started
	require.NoError(t, db.Runs().Update(ctx, got))

	reloaded, err := db.Runs().Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.StartedAt)
	require.Nil(t, reloaded.CompletedAt)
}
