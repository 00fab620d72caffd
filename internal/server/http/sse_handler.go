package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kanban/internal/logging"
	"kanban/internal/server/app"
)

// DefaultHeartbeatInterval is the idle ceiling after which a heartbeat
// event keeps the connection alive through proxies.
const DefaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams board events over Server-Sent Events. Each connection
// owns one bus subscription, released when the client disconnects.
type SSEHandler struct {
	bus       *app.EventBus
	heartbeat time.Duration
	logger    logging.Logger
}

// NewSSEHandler creates an SSE handler. A non-positive heartbeat falls
// back to the default.
func NewSSEHandler(bus *app.EventBus, heartbeat time.Duration) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &SSEHandler{
		bus:       bus,
		heartbeat: heartbeat,
		logger:    logging.NewComponentLogger("SSEHandler"),
	}
}

// HandleStream serves one SSE connection.
func (h *SSEHandler) HandleStream(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(c, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	h.logger.Info("SSE client connected (subscribers: %d)", h.bus.SubscriberCount())

	if _, err := fmt.Fprintf(w, "event: connected\ndata: {}\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				h.logger.Error("Failed to serialize event %s: %v", event.Type, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				h.logger.Debug("SSE write failed, dropping client: %v", err)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, "event: heartbeat\ndata: {}\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-c.Request.Context().Done():
			h.logger.Info("SSE client disconnected")
			return
		}
	}
}
