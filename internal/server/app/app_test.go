package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"kanban/internal/agent"
	"kanban/internal/checkpoint"
	"kanban/internal/mcp"
	"kanban/internal/server/ports"
	"kanban/internal/store/sqlite"
)

// fixture bundles the wired components backed by an in-memory database.
type fixture struct {
	db        *sqlite.DB
	bus       *EventBus
	executor  *Executor
	planner   *Planner
	scheduler *SubtaskScheduler
	service   *AgentService
	runner    *scriptedRunner
}

func newFixture(t *testing.T, opts ...ExecutorOption) *fixture {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := NewEventBus()
	runner := &scriptedRunner{}
	registry := mcp.NewRegistry(filepath.Join(t.TempDir(), "mcps.yaml"))
	checkpoints := checkpoint.NewService(time.Second)

	executor := NewExecutor(db.Tasks(), db.Runs(), bus, runner, checkpoints, registry, opts...)
	planner := NewPlanner(db.Tasks(), bus)
	scheduler := NewSubtaskScheduler(db.Tasks(), db.Runs(), executor, bus)
	service := NewAgentService(db.Tasks(), db.Projects(), db.Runs(), executor, planner, scheduler)

	return &fixture{
		db:        db,
		bus:       bus,
		executor:  executor,
		planner:   planner,
		scheduler: scheduler,
		service:   service,
		runner:    runner,
	}
}

func (f *fixture) createTask(t *testing.T, title string) *ports.Task {
	t.Helper()
	task := &ports.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    ports.TaskStatusTodo,
		Type:      ports.TaskTypeDev,
		Source:    ports.TaskSourceAPI,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.db.Tasks().Insert(context.Background(), task))
	return task
}

func (f *fixture) createPendingRun(t *testing.T, taskID string) *ports.Run {
	t.Helper()
	run := &ports.Run{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Status:    ports.RunStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.db.Runs().Insert(context.Background(), run))
	return run
}

// collectEvents drains up to count events from the subscriber, failing the
// test when they do not arrive in time.
func collectEvents(t *testing.T, sub *Subscriber, count int) []ports.Event {
	t.Helper()
	events := make([]ports.Event, 0, count)
	deadline := time.After(2 * time.Second)
	for len(events) < count {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscriber closed after %d of %d events", len(events), count)
			}
			events = append(events, event)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(events), count)
		}
	}
	return events
}

// waitForRunStatus polls the store until the run reaches want.
func (f *fixture) waitForRunStatus(t *testing.T, runID string, want ports.RunStatus) *ports.Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := f.db.Runs().Get(context.Background(), runID)
		require.NoError(t, err)
		if run.Status == want {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached %s", runID, want)
	return nil
}

// scriptedRunner yields a fixed message sequence, optionally ending with
// an error instead of clean exhaustion, or blocking until the run context
// is cancelled.
type scriptedRunner struct {
	messages []agent.Message
	finalErr error
	startErr error
	block    bool
}

func (r *scriptedRunner) Start(ctx context.Context, req agent.Request) (agent.Stream, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}
	return &scriptedStream{messages: r.messages, finalErr: r.finalErr, block: r.block}, nil
}

type scriptedStream struct {
	messages []agent.Message
	finalErr error
	block    bool
	pos      int
}

func (s *scriptedStream) Next(ctx context.Context) (agent.Message, error) {
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}
	if s.pos < len(s.messages) {
		msg := s.messages[s.pos]
		s.pos++
		return msg, nil
	}
	if s.block {
		<-ctx.Done()
		return agent.Message{}, ctx.Err()
	}
	if s.finalErr != nil {
		return agent.Message{}, s.finalErr
	}
	return agent.Message{}, io.EOF
}

func (s *scriptedStream) Close() error { return nil }
