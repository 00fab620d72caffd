package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/logging"
	"kanban/internal/mcp"
	"kanban/internal/server/ports"
)

// SchemaHandler describes the board vocabulary and the available tool
// servers so clients can render pickers without hardcoding values.
type SchemaHandler struct {
	registry *mcp.Registry
	logger   logging.Logger
}

// NewSchemaHandler creates a schema handler.
func NewSchemaHandler(registry *mcp.Registry) *SchemaHandler {
	return &SchemaHandler{
		registry: registry,
		logger:   logging.NewComponentLogger("SchemaHandler"),
	}
}

// HandleGet returns the schema document.
func (h *SchemaHandler) HandleGet(c *gin.Context) {
	options, err := h.registry.Options()
	if err != nil {
		h.logger.Warn("Tool registry unavailable: %v", err)
		options = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"task_statuses": []ports.TaskStatus{
			ports.TaskStatusTodo,
			ports.TaskStatusInProgress,
			ports.TaskStatusNeedsReview,
			ports.TaskStatusDone,
		},
		"task_types": []ports.TaskType{
			ports.TaskTypeResearch,
			ports.TaskTypeDev,
			ports.TaskTypeNotes,
			ports.TaskTypeNeutral,
		},
		"task_sources": []ports.TaskSource{
			ports.TaskSourceUI,
			ports.TaskSourceMCP,
			ports.TaskSourceAPI,
		},
		"run_statuses": []ports.RunStatus{
			ports.RunStatusPending,
			ports.RunStatusRunning,
			ports.RunStatusNeedsReview,
			ports.RunStatusCompleted,
			ports.RunStatusFailed,
			ports.RunStatusCancelled,
		},
		"mcps": options,
	})
}
