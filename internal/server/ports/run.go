package ports

import "time"

// RunStatus represents the state of a single agent run.
type RunStatus string

const (
	RunStatusPending     RunStatus = "pending"
	RunStatusRunning     RunStatus = "running"
	RunStatusNeedsReview RunStatus = "needs_review"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusCancelled   RunStatus = "cancelled"
)

// Active reports whether the status still occupies the task's single
// active-run slot.
func (s RunStatus) Active() bool {
	return s == RunStatusPending || s == RunStatusRunning
}

// Terminal reports whether the status can never transition again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// Run is one execution attempt of the agent against a single task.
// At most one run may be active per task at any time.
type Run struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"task_id"`
	Status       RunStatus  `json:"status"`
	Logs         string     `json:"logs,omitempty"` // serialized JSON array of log entries
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// LogEntry is a single bounded progress record from agent execution.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"type"`
	Content   string `json:"content"`
}
