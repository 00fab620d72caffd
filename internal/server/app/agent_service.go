package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kanban/internal/async"
	"kanban/internal/logging"
	"kanban/internal/server/ports"
)

// AgentService is the synchronous boundary for agent operations. Requests
// are validated here and returned immediately; execution, planning and
// subtask scheduling run on detached goroutines that never report errors
// back to the caller; outcomes surface through run state and the event
// stream.
type AgentService struct {
	tasks     ports.TaskStore
	projects  ports.ProjectStore
	runs      ports.RunStore
	executor  *Executor
	planner   *Planner
	scheduler *SubtaskScheduler
	logger    logging.Logger
}

// NewAgentService wires the service facade.
func NewAgentService(
	tasks ports.TaskStore,
	projects ports.ProjectStore,
	runs ports.RunStore,
	executor *Executor,
	planner *Planner,
	scheduler *SubtaskScheduler,
) *AgentService {
	return &AgentService{
		tasks:     tasks,
		projects:  projects,
		runs:      runs,
		executor:  executor,
		planner:   planner,
		scheduler: scheduler,
		logger:    logging.NewComponentLogger("AgentService"),
	}
}

// StartRun creates a pending run for the task and starts execution in the
// background. The run record is returned synchronously so its identifier
// is immediately available. Returns ErrConflict when the task already has
// an active run.
func (s *AgentService) StartRun(ctx context.Context, taskID string) (*ports.Run, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	// Fast-path check; the store's unique constraint is the authoritative
	// guard against the check-then-create window.
	if _, err := s.runs.ActiveForTask(ctx, taskID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}

	run := &ports.Run{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		Status:    ports.RunStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		if errors.Is(err, ports.ErrActiveRunExists) {
			return nil, ErrConflict
		}
		return nil, err
	}

	async.Go(s.logger, fmt.Sprintf("run-%s", run.ID), func() {
		ctx := context.Background()
		project := s.loadProject(ctx, task.ProjectID)
		s.executor.Execute(ctx, run, task, project)
	})

	return run, nil
}

// StopRun cancels a running run. Only a run in the running state can be
// stopped; anything else is a precondition failure. Cancellation is
// bookkeeping first: the terminal state is persisted before the in-flight
// work is (best-effort) interrupted, so callers must treat a stopped run
// as "no longer tracked" rather than "guaranteed stopped".
func (s *AgentService) StopRun(ctx context.Context, runID string) (*ports.Run, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != ports.RunStatusRunning {
		return nil, ErrNotRunning
	}

	now := time.Now()
	run.Status = ports.RunStatusCancelled
	run.CompletedAt = &now
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, err
	}

	s.executor.Cancel(runID)
	s.logger.Info("Run %s cancelled", runID)
	return run, nil
}

// GetRun returns one run by id.
func (s *AgentService) GetRun(ctx context.Context, runID string) (*ports.Run, error) {
	return s.runs.Get(ctx, runID)
}

// ListRuns returns runs matching the filter, newest first.
func (s *AgentService) ListRuns(ctx context.Context, filter ports.RunFilter) ([]*ports.Run, error) {
	return s.runs.List(ctx, filter)
}

// PlanTask validates the task and starts planning in the background.
func (s *AgentService) PlanTask(ctx context.Context, taskID string) error {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}

	async.Go(s.logger, fmt.Sprintf("plan-%s", task.ID), func() {
		ctx := context.Background()
		project := s.loadProject(ctx, task.ProjectID)
		if _, err := s.planner.Plan(ctx, task, project); err != nil {
			s.logger.Error("Planning task %s failed: %v", task.ID, err)
		}
	})
	return nil
}

// RunSubtasks validates the parent task and starts sequential subtask
// execution in the background.
func (s *AgentService) RunSubtasks(ctx context.Context, taskID string) error {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}

	async.Go(s.logger, fmt.Sprintf("subtasks-%s", task.ID), func() {
		ctx := context.Background()
		project := s.loadProject(ctx, task.ProjectID)
		if err := s.scheduler.Run(ctx, task, project); err != nil {
			s.logger.Error("Subtask scheduling for %s failed: %v", task.ID, err)
		}
	})
	return nil
}

func (s *AgentService) loadProject(ctx context.Context, projectID string) *ports.Project {
	if projectID == "" {
		return nil
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		s.logger.Warn("Project %s not found, running without workspace: %v", projectID, err)
		return nil
	}
	return project
}
