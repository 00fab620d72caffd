package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when an identifier does not resolve.
var ErrNotFound = errors.New("not found")

// ErrActiveRunExists is returned by RunStore.Insert when the task already
// has a run in a pending or running state.
var ErrActiveRunExists = errors.New("task already has an active run")

// TaskStore persists tasks.
type TaskStore interface {
	Get(ctx context.Context, id string) (*Task, error)
	Insert(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Task, error)
	// ListChildren returns the subtasks of a parent in ascending
	// creation-time order. Ordering is a correctness requirement for
	// sequential subtask execution.
	ListChildren(ctx context.Context, parentID string) ([]*Task, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*Project, error)
	Insert(ctx context.Context, project *Project) error
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Project, error)
}

// RunFilter narrows RunStore.List results. Zero values mean no filtering.
type RunFilter struct {
	TaskID string
	Status RunStatus
}

// RunStore persists agent runs.
type RunStore interface {
	Get(ctx context.Context, id string) (*Run, error)
	// Insert persists a new run. It returns ErrActiveRunExists when the
	// owning task already has a pending or running run; implementations
	// must enforce this atomically, not by read-then-write.
	Insert(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	// List returns runs matching filter, newest first.
	List(ctx context.Context, filter RunFilter) ([]*Run, error)
	// ActiveForTask returns the pending or running run for a task, or
	// ErrNotFound when there is none.
	ActiveForTask(ctx context.Context, taskID string) (*Run, error)
}

// SettingsStore persists board-level key/value settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
