package app

import (
	"fmt"
	"strings"

	"kanban/internal/server/ports"
)

// BuildRunPrompt renders the deterministic prompt for one agent run from
// the task and its optional project. Pure data transformation.
func BuildRunPrompt(task *ports.Task, project *ports.Project) string {
	parts := []string{fmt.Sprintf("# Task: %s", task.Title)}

	if task.Description != "" {
		parts = append(parts, fmt.Sprintf("\n## Description\n%s", task.Description))
	}

	if len(task.Steps) > 0 {
		var steps []string
		for _, step := range task.Steps {
			marker := " "
			if step.Done {
				marker = "x"
			}
			steps = append(steps, fmt.Sprintf("- [%s] %s", marker, step.Text))
		}
		parts = append(parts, "\n## Steps\n"+strings.Join(steps, "\n"))
	}

	if project != nil {
		parts = append(parts, fmt.Sprintf("\n## Workspace\n%s", project.WorkspacePath))
		parts = append(parts, "\nWork only within the workspace directory above. "+
			"When you are done, summarize what you changed.")
	}

	return strings.Join(parts, "\n")
}

// BuildPlanningPrompt renders the prompt for intelligent task
// decomposition. The current planner is template-based and does not send
// it; it is kept for the structured-decomposition path.
func BuildPlanningPrompt(task *ports.Task, project *ports.Project) string {
	parts := []string{fmt.Sprintf("# Task to Decompose: %s", task.Title)}

	if task.Description != "" {
		parts = append(parts, fmt.Sprintf("\n## Description\n%s", task.Description))
	}
	if project != nil {
		parts = append(parts, fmt.Sprintf("\n## Workspace\n%s", project.WorkspacePath))
	}

	parts = append(parts, "\n## Instructions")
	parts = append(parts,
		"Break this task into 2-5 subtasks. Each subtask should be:\n"+
			"- A concrete, actionable piece of work\n"+
			"- Completable by an AI agent\n"+
			"- Include 2-5 specific implementation steps\n\n"+
			"Return a structured decomposition with subtasks and steps.")

	return strings.Join(parts, "\n")
}
