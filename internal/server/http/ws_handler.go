package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"kanban/internal/logging"
	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler streams the same board events as the SSE endpoint over a
// websocket, for clients behind proxies that buffer SSE.
type WSHandler struct {
	bus       *app.EventBus
	upgrader  websocket.Upgrader
	heartbeat time.Duration
	logger    logging.Logger
}

// NewWSHandler creates a websocket handler.
func NewWSHandler(bus *app.EventBus, heartbeat time.Duration) *WSHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &WSHandler{
		bus: bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		heartbeat: heartbeat,
		logger:    logging.NewComponentLogger("WSHandler"),
	}
}

// HandleStream serves one websocket connection.
func (h *WSHandler) HandleStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	h.logger.Info("Websocket client connected (subscribers: %d)", h.bus.SubscriberCount())

	// Reader drains and detects the close frame; clients never send data.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-sub.Events():
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("Websocket write failed, dropping client: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ports.Event{Type: ports.EventHeartbeat, Data: map[string]any{}}); err != nil {
				return
			}

		case <-closed:
			h.logger.Info("Websocket client disconnected")
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}
