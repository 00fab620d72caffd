package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kanban/internal/agent"
	"kanban/internal/checkpoint"
	"kanban/internal/config"
	"kanban/internal/logging"
	"kanban/internal/mcp"
	"kanban/internal/metrics"
	"kanban/internal/server/app"
	serverhttp "kanban/internal/server/http"
	"kanban/internal/store/sqlite"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "kanban-server",
		Short: "Kanban board server with agent task execution",
		Long: "kanban-server hosts a kanban board whose cards can be delegated to " +
			"an autonomous coding agent. It serves the board API, streams live " +
			"events over SSE and websocket, and drives agent runs against " +
			"project workspaces.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.SetDefaultLevel(logging.ParseLevel(cfg.LogLevel))

	logger := logging.NewComponentLogger("Main")
	logger.Info("Starting kanban-server on %s", cfg.Addr())

	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info("Database ready at %s", cfg.DatabasePath)

	m := metrics.New()
	bus := app.NewEventBus(app.WithBusMetrics(m))
	registry := mcp.NewRegistry(cfg.MCPRegistryPath())
	checkpoints := checkpoint.NewService(cfg.CheckpointTimeout)

	runner := agent.NewCLIRunner(
		agent.WithCommand(cfg.AgentCommand),
		agent.WithSkipPermissions(cfg.AgentSkipPermissions),
	)

	executor := app.NewExecutor(
		db.Tasks(), db.Runs(), bus, runner, checkpoints, registry,
		app.WithExhaustionPolicy(app.ParseExhaustionPolicy(cfg.ExhaustionPolicy)),
		app.WithExecutorMetrics(m),
	)
	planner := app.NewPlanner(db.Tasks(), bus)
	scheduler := app.NewSubtaskScheduler(db.Tasks(), db.Runs(), executor, bus)
	service := app.NewAgentService(db.Tasks(), db.Projects(), db.Runs(), executor, planner, scheduler)

	router := serverhttp.NewRouter(serverhttp.RouterDeps{
		Tasks:             db.Tasks(),
		Projects:          db.Projects(),
		Settings:          db.Settings(),
		Agent:             service,
		Bus:               bus,
		Registry:          registry,
		Metrics:           m,
		HeartbeatInterval: cfg.HeartbeatInterval,
		AllowedOrigins:    cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE connections stay open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
