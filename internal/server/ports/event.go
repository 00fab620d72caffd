package ports

// EventType tags board notifications delivered to live subscribers.
type EventType string

const (
	EventTaskCreated EventType = "task_created"
	EventTaskUpdated EventType = "task_updated"
	EventTaskDeleted EventType = "task_deleted"
	EventAgentLog    EventType = "agent_log"
	EventHeartbeat   EventType = "heartbeat"
)

// Event is an ephemeral notification. Events are never persisted and never
// replayed: a subscriber only sees events published while it is registered.
type Event struct {
	Type EventType      `json:"event_type"`
	Data map[string]any `json:"data"`
}

// TaskEventData renders the full task snapshot carried by task_* events.
func TaskEventData(task *Task) map[string]any {
	if task == nil {
		return nil
	}
	return map[string]any{
		"id":          task.ID,
		"title":       task.Title,
		"description": task.Description,
		"result":      task.Result,
		"status":      string(task.Status),
		"type":        string(task.Type),
		"project_id":  task.ProjectID,
		"parent_id":   task.ParentID,
		"steps":       task.Steps,
		"created_at":  task.CreatedAt,
	}
}
