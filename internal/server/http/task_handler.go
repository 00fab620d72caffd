package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kanban/internal/logging"
	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

// TaskHandler serves task CRUD. Every mutation publishes the matching
// task_* event so connected boards stay in sync without polling.
type TaskHandler struct {
	tasks  ports.TaskStore
	bus    *app.EventBus
	logger logging.Logger
}

// NewTaskHandler creates a task handler.
func NewTaskHandler(tasks ports.TaskStore, bus *app.EventBus) *TaskHandler {
	return &TaskHandler{
		tasks:  tasks,
		bus:    bus,
		logger: logging.NewComponentLogger("TaskHandler"),
	}
}

type createTaskRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Steps       []ports.Step `json:"steps"`
	Type        string       `json:"type"`
	ProjectID   string       `json:"project_id"`
	ParentID    string       `json:"parent_id"`
}

type updateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Result      *string       `json:"result"`
	Steps       *[]ports.Step `json:"steps"`
	Status      *string       `json:"status"`
	Type        *string       `json:"type"`
	ProjectID   *string       `json:"project_id"`
}

// HandleList returns every task on the board.
func (h *TaskHandler) HandleList(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// HandleGet returns one task by id.
func (h *TaskHandler) HandleGet(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// HandleCreate creates a task and publishes task_created.
func (h *TaskHandler) HandleCreate(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "title is required")
		return
	}

	taskType := ports.TaskType(req.Type)
	if !validTaskType(taskType) {
		taskType = ports.TaskTypeNeutral
	}

	task := &ports.Task{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Steps:       req.Steps,
		Status:      ports.TaskStatusTodo,
		Type:        taskType,
		Source:      ports.TaskSourceAPI,
		ProjectID:   req.ProjectID,
		ParentID:    req.ParentID,
		CreatedAt:   time.Now(),
	}
	if err := h.tasks.Insert(c.Request.Context(), task); err != nil {
		respondStoreError(c, err)
		return
	}

	h.bus.PublishTaskEvent(ports.EventTaskCreated, task)
	h.logger.Info("Task %s created: %s", task.ID, task.Title)
	c.JSON(http.StatusCreated, task)
}

// HandleUpdate applies a partial update and publishes task_updated.
func (h *TaskHandler) HandleUpdate(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Result != nil {
		task.Result = *req.Result
	}
	if req.Steps != nil {
		task.Steps = *req.Steps
	}
	if req.Status != nil {
		status := ports.TaskStatus(*req.Status)
		if !validTaskStatus(status) {
			respondError(c, http.StatusBadRequest, "invalid status")
			return
		}
		task.Status = status
	}
	if req.Type != nil {
		taskType := ports.TaskType(*req.Type)
		if !validTaskType(taskType) {
			respondError(c, http.StatusBadRequest, "invalid type")
			return
		}
		task.Type = taskType
	}
	if req.ProjectID != nil {
		task.ProjectID = *req.ProjectID
	}

	if err := h.tasks.Update(c.Request.Context(), task); err != nil {
		respondStoreError(c, err)
		return
	}

	h.bus.PublishTaskEvent(ports.EventTaskUpdated, task)
	c.JSON(http.StatusOK, task)
}

// HandleDelete removes a task and publishes task_deleted.
func (h *TaskHandler) HandleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := h.tasks.Delete(c.Request.Context(), id); err != nil {
		respondStoreError(c, err)
		return
	}

	h.bus.Publish(ports.Event{Type: ports.EventTaskDeleted, Data: map[string]any{"id": id}})
	h.logger.Info("Task %s deleted", id)
	c.Status(http.StatusNoContent)
}

func validTaskStatus(status ports.TaskStatus) bool {
	switch status {
	case ports.TaskStatusTodo, ports.TaskStatusInProgress, ports.TaskStatusNeedsReview, ports.TaskStatusDone:
		return true
	default:
		return false
	}
}

func validTaskType(taskType ports.TaskType) bool {
	switch taskType {
	case ports.TaskTypeResearch, ports.TaskTypeDev, ports.TaskTypeNotes, ports.TaskTypeNeutral:
		return true
	default:
		return false
	}
}
