package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kanban/internal/logging"
	"kanban/internal/server/ports"
)

// SubtaskScheduler executes a parent's subtasks one at a time in creation
// order and rolls the aggregate outcome up onto the parent. Sequential by
// design: later phases build on the filesystem state earlier ones leave
// behind.
type SubtaskScheduler struct {
	tasks    ports.TaskStore
	runs     ports.RunStore
	executor *Executor
	bus      *EventBus
	logger   logging.Logger
}

// NewSubtaskScheduler wires a scheduler.
func NewSubtaskScheduler(tasks ports.TaskStore, runs ports.RunStore, executor *Executor, bus *EventBus) *SubtaskScheduler {
	return &SubtaskScheduler{
		tasks:    tasks,
		runs:     runs,
		executor: executor,
		bus:      bus,
		logger:   logging.NewComponentLogger("SubtaskScheduler"),
	}
}

// Run executes all subtasks of parent sequentially. A parent with no
// subtasks is a no-op: no status change, no run, no event.
func (s *SubtaskScheduler) Run(ctx context.Context, parent *ports.Task, project *ports.Project) error {
	children, err := s.tasks.ListChildren(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("list subtasks of %s: %w", parent.ID, err)
	}
	if len(children) == 0 {
		return nil
	}

	parent.Status = ports.TaskStatusInProgress
	if err := s.tasks.Update(ctx, parent); err != nil {
		return fmt.Errorf("mark parent in progress: %w", err)
	}
	s.bus.PublishTaskEvent(ports.EventTaskUpdated, parent)

	for _, child := range children {
		run := &ports.Run{
			ID:        uuid.NewString(),
			TaskID:    child.ID,
			Status:    ports.RunStatusPending,
			CreatedAt: time.Now(),
		}
		if err := s.runs.Insert(ctx, run); err != nil {
			if errors.Is(err, ports.ErrActiveRunExists) {
				s.logger.Warn("Subtask %s already has an active run, skipping", child.ID)
				continue
			}
			return fmt.Errorf("create run for subtask %s: %w", child.ID, err)
		}

		result := s.executor.Execute(ctx, run, child, project)
		s.logger.Info("Subtask %s finished with status %s", child.ID, result.Status)
	}

	// Re-read the children: the executor mutated their statuses.
	children, err = s.tasks.ListChildren(ctx, parent.ID)
	if err != nil {
		return fmt.Errorf("reload subtasks of %s: %w", parent.ID, err)
	}

	allDone := true
	for _, child := range children {
		if child.Status != ports.TaskStatusDone {
			allDone = false
			break
		}
	}

	// Any child failure or non-terminal outcome surfaces as a human
	// checkpoint, never as a silent partial success.
	if allDone {
		parent.Status = ports.TaskStatusDone
	} else {
		parent.Status = ports.TaskStatusNeedsReview
	}
	if err := s.tasks.Update(ctx, parent); err != nil {
		return fmt.Errorf("roll up parent status: %w", err)
	}
	s.bus.PublishTaskEvent(ports.EventTaskUpdated, parent)

	s.logger.Info("Parent %s rolled up to %s", parent.ID, parent.Status)
	return nil
}
