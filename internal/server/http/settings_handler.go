package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kanban/internal/logging"
	"kanban/internal/server/ports"
)

// SettingsHandler serves the board-level key/value settings.
type SettingsHandler struct {
	settings ports.SettingsStore
	logger   logging.Logger
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(settings ports.SettingsStore) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		logger:   logging.NewComponentLogger("SettingsHandler"),
	}
}

// HandleGet returns all settings as a flat map.
func (h *SettingsHandler) HandleGet(c *gin.Context) {
	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	if all == nil {
		all = map[string]string{}
	}
	c.JSON(http.StatusOK, all)
}

// HandlePut upserts the submitted keys. Keys absent from the body are
// left untouched.
func (h *SettingsHandler) HandlePut(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	for key, value := range values {
		if err := h.settings.Set(c.Request.Context(), key, value); err != nil {
			respondStoreError(c, err)
			return
		}
	}

	all, err := h.settings.All(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}
