package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kanban/internal/mcp"
	"kanban/internal/metrics"
	"kanban/internal/server/app"
	"kanban/internal/server/ports"
)

// RouterDeps carries everything the HTTP surface needs. All fields except
// Metrics are required.
type RouterDeps struct {
	Tasks    ports.TaskStore
	Projects ports.ProjectStore
	Settings ports.SettingsStore
	Agent    *app.AgentService
	Bus      *app.EventBus
	Registry *mcp.Registry
	Metrics  *metrics.Metrics

	HeartbeatInterval time.Duration
	AllowedOrigins    []string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(deps.AllowedOrigins) == 0 || containsWildcard(deps.AllowedOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	taskHandler := NewTaskHandler(deps.Tasks, deps.Bus)
	projectHandler := NewProjectHandler(deps.Projects)
	agentHandler := NewAgentHandler(deps.Agent)
	sseHandler := NewSSEHandler(deps.Bus, deps.HeartbeatInterval)
	wsHandler := NewWSHandler(deps.Bus, deps.HeartbeatInterval)
	schemaHandler := NewSchemaHandler(deps.Registry)
	settingsHandler := NewSettingsHandler(deps.Settings)

	api := engine.Group("/api")
	{
		api.GET("/tasks", taskHandler.HandleList)
		api.POST("/tasks", taskHandler.HandleCreate)
		api.GET("/tasks/:id", taskHandler.HandleGet)
		api.PUT("/tasks/:id", taskHandler.HandleUpdate)
		api.DELETE("/tasks/:id", taskHandler.HandleDelete)

		api.GET("/projects", projectHandler.HandleList)
		api.POST("/projects", projectHandler.HandleCreate)
		api.GET("/projects/:id", projectHandler.HandleGet)
		api.PUT("/projects/:id", projectHandler.HandleUpdate)
		api.DELETE("/projects/:id", projectHandler.HandleDelete)

		api.POST("/agent/run", agentHandler.HandleStartRun)
		api.POST("/agent/stop/:id", agentHandler.HandleStopRun)
		api.GET("/agent/runs", agentHandler.HandleListRuns)
		api.GET("/agent/runs/:id", agentHandler.HandleGetRun)
		api.POST("/agent/plan/:task_id", agentHandler.HandlePlanTask)
		api.POST("/agent/run-subtasks/:task_id", agentHandler.HandleRunSubtasks)

		api.GET("/events", sseHandler.HandleStream)
		api.GET("/events/ws", wsHandler.HandleStream)

		api.GET("/schema", schemaHandler.HandleGet)
		api.GET("/settings", settingsHandler.HandleGet)
		api.PUT("/settings", settingsHandler.HandlePut)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
		})
	}

	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			deps.Metrics.Registry(),
			promhttp.HandlerOpts{},
		)))
	}

	return engine
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
