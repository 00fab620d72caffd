package http

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kanban/internal/logging"
	"kanban/internal/server/ports"
)

// ProjectHandler serves project CRUD. The workspace path is validated to
// an existing directory at create time only; a directory that disappears
// later degrades checkpointing, never the run itself.
type ProjectHandler struct {
	projects ports.ProjectStore
	logger   logging.Logger
}

// NewProjectHandler creates a project handler.
func NewProjectHandler(projects ports.ProjectStore) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		logger:   logging.NewComponentLogger("ProjectHandler"),
	}
}

type createProjectRequest struct {
	Name          string `json:"name" binding:"required"`
	WorkspacePath string `json:"workspace_path" binding:"required"`
}

type updateProjectRequest struct {
	Name          *string `json:"name"`
	WorkspacePath *string `json:"workspace_path"`
}

// HandleList returns all projects.
func (h *ProjectHandler) HandleList(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// HandleGet returns one project by id.
func (h *ProjectHandler) HandleGet(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleCreate creates a project after validating its workspace.
func (h *ProjectHandler) HandleCreate(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "name and workspace_path are required")
		return
	}
	if !isDirectory(req.WorkspacePath) {
		respondError(c, http.StatusBadRequest, "workspace_path is not an existing directory")
		return
	}

	project := &ports.Project{
		ID:            uuid.NewString(),
		Name:          req.Name,
		WorkspacePath: req.WorkspacePath,
		CreatedAt:     time.Now(),
	}
	if err := h.projects.Insert(c.Request.Context(), project); err != nil {
		respondStoreError(c, err)
		return
	}

	h.logger.Info("Project %s created: %s (%s)", project.ID, project.Name, project.WorkspacePath)
	c.JSON(http.StatusCreated, project)
}

// HandleUpdate applies a partial update.
func (h *ProjectHandler) HandleUpdate(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.WorkspacePath != nil {
		if !isDirectory(*req.WorkspacePath) {
			respondError(c, http.StatusBadRequest, "workspace_path is not an existing directory")
			return
		}
		project.WorkspacePath = *req.WorkspacePath
	}

	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleDelete removes a project. Tasks keep their project_id; runs for
// those tasks simply lose their workspace.
func (h *ProjectHandler) HandleDelete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
