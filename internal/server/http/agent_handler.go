package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/logging"
	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

// AgentHandler exposes the asynchronous agent operations. Starting work
// returns 202 immediately; progress and outcomes arrive on the event
// stream and in run records.
type AgentHandler struct {
	agent  *app.AgentService
	logger logging.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(agent *app.AgentService) *AgentHandler {
	return &AgentHandler{
		agent:  agent,
		logger: logging.NewComponentLogger("AgentHandler"),
	}
}

type startRunRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// HandleStartRun creates a run for a task and starts the agent.
func (h *AgentHandler) HandleStartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "task_id is required")
		return
	}

	run, err := h.agent.StartRun(c.Request.Context(), req.TaskID)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

// HandleStopRun cancels a running run.
func (h *AgentHandler) HandleStopRun(c *gin.Context) {
	run, err := h.agent.StopRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// HandleGetRun returns one run, including its serialized logs.
func (h *AgentHandler) HandleGetRun(c *gin.Context) {
	run, err := h.agent.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// HandleListRuns returns runs newest first, optionally narrowed by
// task_id and status query parameters.
func (h *AgentHandler) HandleListRuns(c *gin.Context) {
	filter := ports.RunFilter{
		TaskID: c.Query("task_id"),
		Status: ports.RunStatus(c.Query("status")),
	}
	runs, err := h.agent.ListRuns(c.Request.Context(), filter)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// HandlePlanTask starts template-based decomposition in the background.
func (h *AgentHandler) HandlePlanTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.agent.PlanTask(c.Request.Context(), taskID); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "status": "planning"})
}

// HandleRunSubtasks starts sequential subtask execution in the background.
func (h *AgentHandler) HandleRunSubtasks(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.agent.RunSubtasks(c.Request.Context(), taskID); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "status": "running"})
}
