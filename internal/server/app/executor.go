package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"kanban/internal/agent"
	"kanban/internal/checkpoint"
	"kanban/internal/logging"
	"kanban/internal/mcp"
	"kanban/internal/metrics"
	"kanban/internal/server/ports"
)

// maxLogContent caps the rendered length of a single agent log entry.
const maxLogContent = 500

// ExhaustionPolicy decides the run outcome when the agent stream ends
// without an explicit success signal. The source behavior treats
// exhaustion as success; that default is preserved here but kept
// overridable rather than silently baked in.
type ExhaustionPolicy string

const (
	ExhaustionSuccess ExhaustionPolicy = "success"
	ExhaustionFailure ExhaustionPolicy = "failure"
	ExhaustionReview  ExhaustionPolicy = "review"
)

// ParseExhaustionPolicy maps a config value to a policy, defaulting to
// the legacy exhaustion-as-success behavior on unknown input.
func ParseExhaustionPolicy(value string) ExhaustionPolicy {
	switch ExhaustionPolicy(value) {
	case ExhaustionFailure:
		return ExhaustionFailure
	case ExhaustionReview:
		return ExhaustionReview
	default:
		return ExhaustionSuccess
	}
}

// Result is the structured outcome of a run. Executor callers always get
// one of these; no error ever escapes the executor.
type Result struct {
	Status  ports.RunStatus
	Message string
	Error   string
}

// Executor drives a single agent run end to end: status transitions,
// prompt construction, stream consumption, checkpointing, result
// persistence and event emission.
type Executor struct {
	tasks       ports.TaskStore
	runs        ports.RunStore
	bus         *EventBus
	runner      agent.Runner
	checkpoints *checkpoint.Service
	registry    *mcp.Registry
	policy      ExhaustionPolicy
	metrics     *metrics.Metrics
	logger      logging.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExhaustionPolicy overrides the stream-exhaustion outcome.
func WithExhaustionPolicy(policy ExhaustionPolicy) ExecutorOption {
	return func(e *Executor) { e.policy = policy }
}

// WithExecutorMetrics attaches prometheus metrics.
func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithExecutorLogger overrides the executor logger.
func WithExecutorLogger(logger logging.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor wires an executor.
func NewExecutor(
	tasks ports.TaskStore,
	runs ports.RunStore,
	bus *EventBus,
	runner agent.Runner,
	checkpoints *checkpoint.Service,
	registry *mcp.Registry,
	opts ...ExecutorOption,
) *Executor {
	executor := &Executor{
		tasks:       tasks,
		runs:        runs,
		bus:         bus,
		runner:      runner,
		checkpoints: checkpoints,
		registry:    registry,
		policy:      ExhaustionSuccess,
		logger:      logging.NewComponentLogger("Executor"),
		cancels:     make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Cancel requests best-effort interruption of an in-flight run. It only
// cancels the run's context; the authoritative cancelled state is written
// by StopRun before this is called.
func (e *Executor) Cancel(runID string) {
	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Executor) registerCancel(runID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.cancels[runID] = cancel
	e.mu.Unlock()
}

func (e *Executor) unregisterCancel(runID string) {
	e.mu.Lock()
	delete(e.cancels, runID)
	e.mu.Unlock()
}

// Execute runs the agent for one pending run and leaves both the run and
// the task in a consistent terminal state no matter how execution ends.
func (e *Executor) Execute(ctx context.Context, run *ports.Run, task *ports.Task, project *ports.Project) Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.registerCancel(run.ID, cancel)
	defer e.unregisterCancel(run.ID)

	// pending -> running
	now := time.Now()
	run.Status = ports.RunStatusRunning
	run.StartedAt = &now
	if err := e.runs.Update(ctx, run); err != nil {
		return e.fail(ctx, run, task, nil, err)
	}
	task.Status = ports.TaskStatusInProgress
	if err := e.tasks.Update(ctx, task); err != nil {
		return e.fail(ctx, run, task, nil, err)
	}
	e.bus.PublishTaskEvent(ports.EventTaskUpdated, task)
	if e.metrics != nil {
		e.metrics.RunsStarted.Inc()
	}
	e.logger.Info("Run %s started for task %s", run.ID, task.ID)

	workspace := workspaceDir(project)
	if workspace != "" {
		if !e.checkpoints.Checkpoint(ctx, workspace, task.ID) {
			e.logger.Warn("Checkpoint failed for run %s in %s, continuing", run.ID, workspace)
		}
	}

	capabilities, err := e.registry.Resolve(e.registry.DefaultTools(), workspace)
	if err != nil {
		e.logger.Warn("Capability resolution failed for run %s: %v", run.ID, err)
		capabilities = nil
	}

	stream, err := e.runner.Start(ctx, agent.Request{
		Prompt:        BuildRunPrompt(task, project),
		WorkspacePath: workspace,
		Capabilities:  capabilities,
	})
	if err != nil {
		return e.fail(ctx, run, task, nil, err)
	}
	defer stream.Close()

	var entries []ports.LogEntry
	var finalResult string
	var lastAssistant string
	sawSuccess := false

	for {
		msg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return e.fail(ctx, run, task, entries, err)
		}

		entry := toLogEntry(msg)
		entries = append(entries, entry)
		e.bus.PublishAgentLog(task.ID, run.ID, entry)

		if msg.Kind == agent.KindAssistant {
			lastAssistant = msg.Text
		}
		if msg.IsSuccess() {
			sawSuccess = true
			finalResult = msg.Result
		}
	}

	if !sawSuccess {
		switch e.policy {
		case ExhaustionFailure:
			return e.fail(ctx, run, task, entries, errors.New("agent stream ended without a result"))
		case ExhaustionReview:
			return e.finishForReview(ctx, run, task, entries)
		default:
			// Legacy behavior: exhaustion counts as success.
			finalResult = lastAssistant
		}
	}

	return e.complete(ctx, run, task, project, entries, finalResult)
}

// complete handles running -> completed.
func (e *Executor) complete(ctx context.Context, run *ports.Run, task *ports.Task, project *ports.Project, entries []ports.LogEntry, result string) Result {
	ctx = context.WithoutCancel(ctx)

	if workspace := workspaceDir(project); workspace != "" {
		if !e.checkpoints.Commit(ctx, workspace, commitMessage(task)) {
			// A failed post-success commit does not revert the completion;
			// the task stays done. Accepted asymmetry.
			e.logger.Warn("Post-success commit failed for run %s in %s", run.ID, workspace)
		}
	}

	now := time.Now()
	run.Status = ports.RunStatusCompleted
	run.CompletedAt = &now
	run.Logs = serializeLogs(entries)
	if err := e.runs.Update(ctx, run); err != nil {
		e.logger.Error("Failed to persist completed run %s: %v", run.ID, err)
	}

	task.Status = ports.TaskStatusDone
	task.Result = result
	if err := e.tasks.Update(ctx, task); err != nil {
		e.logger.Error("Failed to persist task %s after run %s: %v", task.ID, run.ID, err)
	}
	e.bus.PublishTaskEvent(ports.EventTaskUpdated, task)
	e.publishTerminalLog(task.ID, run.ID, "done", "Agent run completed")

	if e.metrics != nil {
		e.metrics.RunsFinished.WithLabelValues(string(ports.RunStatusCompleted)).Inc()
	}
	e.logger.Info("Run %s completed for task %s", run.ID, task.ID)
	return Result{Status: ports.RunStatusCompleted, Message: result}
}

// finishForReview handles stream exhaustion under the review policy: the
// run outcome is indeterminate and surfaces as a human checkpoint.
func (e *Executor) finishForReview(ctx context.Context, run *ports.Run, task *ports.Task, entries []ports.LogEntry) Result {
	ctx = context.WithoutCancel(ctx)

	now := time.Now()
	run.Status = ports.RunStatusNeedsReview
	run.CompletedAt = &now
	run.Logs = serializeLogs(entries)
	if err := e.runs.Update(ctx, run); err != nil {
		e.logger.Error("Failed to persist run %s: %v", run.ID, err)
	}

	task.Status = ports.TaskStatusNeedsReview
	if err := e.tasks.Update(ctx, task); err != nil {
		e.logger.Error("Failed to persist task %s: %v", task.ID, err)
	}
	e.bus.PublishTaskEvent(ports.EventTaskUpdated, task)
	e.publishTerminalLog(task.ID, run.ID, "done", "Agent stream ended without a result; review required")

	if e.metrics != nil {
		e.metrics.RunsFinished.WithLabelValues(string(ports.RunStatusNeedsReview)).Inc()
	}
	return Result{Status: ports.RunStatusNeedsReview}
}

// fail handles any error raised while consuming the stream. When the run
// was cancelled through StopRun the cancelled state is preserved instead
// of being overwritten (terminal states are monotonic).
func (e *Executor) fail(ctx context.Context, run *ports.Run, task *ports.Task, entries []ports.LogEntry, cause error) Result {
	ctx = context.WithoutCancel(ctx)

	if fresh, err := e.runs.Get(ctx, run.ID); err == nil && fresh.Status == ports.RunStatusCancelled {
		fresh.Logs = serializeLogs(entries)
		if err := e.runs.Update(ctx, fresh); err != nil {
			e.logger.Error("Failed to persist cancelled run %s: %v", run.ID, err)
		}
		e.publishTerminalLog(task.ID, run.ID, "done", "Agent run cancelled")
		if e.metrics != nil {
			e.metrics.RunsFinished.WithLabelValues(string(ports.RunStatusCancelled)).Inc()
		}
		e.logger.Info("Run %s cancelled for task %s", run.ID, task.ID)
		return Result{Status: ports.RunStatusCancelled}
	}

	now := time.Now()
	run.Status = ports.RunStatusFailed
	run.ErrorMessage = cause.Error()
	run.CompletedAt = &now
	run.Logs = serializeLogs(entries)
	if err := e.runs.Update(ctx, run); err != nil {
		e.logger.Error("Failed to persist failed run %s: %v", run.ID, err)
	}

	// The task goes back to todo so it is immediately re-actionable.
	task.Status = ports.TaskStatusTodo
	if err := e.tasks.Update(ctx, task); err != nil {
		e.logger.Error("Failed to persist task %s after failed run %s: %v", task.ID, run.ID, err)
	}
	e.bus.Publish(ports.Event{Type: ports.EventTaskUpdated, Data: taskDataWithError(task, cause)})
	e.publishTerminalLog(task.ID, run.ID, "error", truncate(cause.Error(), maxLogContent))

	if e.metrics != nil {
		e.metrics.RunsFinished.WithLabelValues(string(ports.RunStatusFailed)).Inc()
	}
	e.logger.Warn("Run %s failed for task %s: %v", run.ID, task.ID, cause)
	return Result{Status: ports.RunStatusFailed, Error: cause.Error()}
}

func (e *Executor) publishTerminalLog(taskID, runID, kind, content string) {
	e.bus.PublishAgentLog(taskID, runID, ports.LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Kind:      kind,
		Content:   content,
	})
}

func toLogEntry(msg agent.Message) ports.LogEntry {
	return ports.LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Kind:      string(msg.Kind),
		Content:   truncate(msg.Text, maxLogContent),
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func serializeLogs(entries []ports.LogEntry) string {
	if len(entries) == 0 {
		return ""
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return string(raw)
}

func workspaceDir(project *ports.Project) string {
	if project == nil || project.WorkspacePath == "" {
		return ""
	}
	info, err := os.Stat(project.WorkspacePath)
	if err != nil || !info.IsDir() {
		return ""
	}
	return project.WorkspacePath
}

func commitMessage(task *ports.Task) string {
	short := task.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return "task-" + short + ": " + truncate(task.Title, 72)
}

func taskDataWithError(task *ports.Task, cause error) map[string]any {
	data := ports.TaskEventData(task)
	data["error"] = cause.Error()
	return data
}
