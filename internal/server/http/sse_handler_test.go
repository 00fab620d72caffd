package http

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

func startSSEServer(t *testing.T, bus *app.EventBus, heartbeat time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/events", NewSSEHandler(bus, heartbeat).HandleStream)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

// readUntil consumes SSE lines until one contains want.
func readUntil(t *testing.T, reader *bufio.Reader, want string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended while waiting for %q: %v", want, err)
		}
		if strings.Contains(line, want) {
			return line
		}
	}
	t.Fatalf("never saw %q", want)
	return ""
}

func TestSSEStreamDeliversEvents(t *testing.T) {
	bus := app.NewEventBus()
	server := startSSEServer(t, bus, time.Minute)

	resp, err := http.Get(server.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, "event: connected")

	require.Eventually(t, func() bool {
		return bus.SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	bus.PublishTaskEvent(ports.EventTaskCreated, &ports.Task{ID: "t1", Title: "streamed"})

	readUntil(t, reader, "event: task_created")
	data := readUntil(t, reader, "data: ")
	assert.Contains(t, data, `"id":"t1"`)

	// Closing the client releases the subscription.
	resp.Body.Close()
	require.Eventually(t, func() bool {
		return bus.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHeartbeat(t *testing.T) {
	bus := app.NewEventBus()
	server := startSSEServer(t, bus, 20*time.Millisecond)

	resp, err := http.Get(server.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readUntil(t, reader, "event: connected")
	readUntil(t, reader, "event: heartbeat")
}
