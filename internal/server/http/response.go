package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, errorResponse{Error: message})
}

// respondStoreError maps service and store errors onto HTTP statuses.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		respondError(c, 404, "not found")
	case errors.Is(err, app.ErrConflict):
		respondError(c, 409, "task already has an active run")
	case errors.Is(err, app.ErrNotRunning):
		respondError(c, 400, "run is not running")
	default:
		respondError(c, 500, err.Error())
	}
}
