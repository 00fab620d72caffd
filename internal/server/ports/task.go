package ports

import "time"

// TaskStatus represents the state of a task on the board.
type TaskStatus string

const (
	TaskStatusTodo        TaskStatus = "todo"
	TaskStatusInProgress  TaskStatus = "in_progress"
	TaskStatusNeedsReview TaskStatus = "needs_review"
	TaskStatusDone        TaskStatus = "done"
)

// TaskType categorizes tasks for visual distinction on the board.
type TaskType string

const (
	TaskTypeResearch TaskType = "research"
	TaskTypeDev      TaskType = "dev"
	TaskTypeNotes    TaskType = "notes"
	TaskTypeNeutral  TaskType = "neutral"
)

// TaskSource records where a task was created from.
type TaskSource string

const (
	TaskSourceUI  TaskSource = "ui"
	TaskSourceMCP TaskSource = "mcp"
	TaskSourceAPI TaskSource = "api"
)

// Step is a single checklist item on a task.
type Step struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Task is a unit of work. A task with a non-empty ParentID is a subtask;
// subtasks are never decomposed further.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Result      string     `json:"result,omitempty"`
	Steps       []Step     `json:"steps,omitempty"`
	Status      TaskStatus `json:"status"`
	Type        TaskType   `json:"type"`
	Source      TaskSource `json:"source"`
	ProjectID   string     `json:"project_id,omitempty"`
	ParentID    string     `json:"parent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
