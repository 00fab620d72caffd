package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kanban/internal/logging"
	"kanban/internal/server/ports"
)

// Planner decomposes a task into an ordered set of subtasks. The current
// decomposition is template-based and never calls the agent; the parent is
// parked in needs_review for user approval of the plan.
type Planner struct {
	tasks  ports.TaskStore
	bus    *EventBus
	logger logging.Logger
}

// NewPlanner wires a planner.
func NewPlanner(tasks ports.TaskStore, bus *EventBus) *Planner {
	return &Planner{
		tasks:  tasks,
		bus:    bus,
		logger: logging.NewComponentLogger("Planner"),
	}
}

type subtaskTemplate struct {
	title       string
	description string
	steps       []ports.Step
}

func subtaskTemplates(parentTitle string) []subtaskTemplate {
	return []subtaskTemplate{
		{
			title:       fmt.Sprintf("Setup for: %s", parentTitle),
			description: "Initial setup and configuration",
			steps: []ports.Step{
				{Text: "Analyze requirements"},
				{Text: "Set up environment"},
			},
		},
		{
			title:       fmt.Sprintf("Implement: %s", parentTitle),
			description: "Core implementation work",
			steps: []ports.Step{
				{Text: "Write implementation"},
				{Text: "Add error handling"},
				{Text: "Test locally"},
			},
		},
		{
			title:       fmt.Sprintf("Finalize: %s", parentTitle),
			description: "Cleanup and documentation",
			steps: []ports.Step{
				{Text: "Add documentation"},
				{Text: "Final review"},
			},
		},
	}
}

// Plan creates the subtasks for a parent task. The parent's status
// brackets the creation (in_progress before, needs_review after) so the
// whole operation reads as a single phase on the event stream. Returns
// the created subtasks in execution order.
func (p *Planner) Plan(ctx context.Context, task *ports.Task, project *ports.Project) ([]*ports.Task, error) {
	task.Status = ports.TaskStatusInProgress
	if err := p.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("mark planning started: %w", err)
	}
	p.bus.PublishTaskEvent(ports.EventTaskUpdated, task)

	templates := subtaskTemplates(task.Title)
	created := make([]*ports.Task, 0, len(templates))
	base := time.Now()
	for i, tpl := range templates {
		subtask := &ports.Task{
			ID:          uuid.NewString(),
			Title:       tpl.title,
			Description: tpl.description,
			Steps:       tpl.steps,
			Status:      ports.TaskStatusTodo,
			Type:        task.Type,
			Source:      task.Source,
			ProjectID:   task.ProjectID,
			ParentID:    task.ID,
			// Strictly increasing creation times fix the execution order.
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := p.tasks.Insert(ctx, subtask); err != nil {
			return nil, fmt.Errorf("create subtask %q: %w", tpl.title, err)
		}
		created = append(created, subtask)
	}

	task.Status = ports.TaskStatusNeedsReview
	if err := p.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("mark plan ready for review: %w", err)
	}

	for _, subtask := range created {
		p.bus.PublishTaskEvent(ports.EventTaskCreated, subtask)
	}
	p.bus.PublishTaskEvent(ports.EventTaskUpdated, task)

	p.logger.Info("Planned %d subtasks for task %s", len(created), task.ID)
	return created, nil
}
