package ports

import "time"

// Project groups tasks and supplies the filesystem workspace the agent is
// confined to. A workspace that no longer resolves to a directory degrades
// checkpointing to a no-op rather than failing runs.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	WorkspacePath string    `json:"workspace_path"`
	CreatedAt     time.Time `json:"created_at"`
}
