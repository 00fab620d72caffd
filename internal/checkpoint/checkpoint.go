// Package checkpoint brackets agent execution with git snapshots of the
// task's workspace so agent-induced changes are diffable against a known
// baseline.
package checkpoint

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"kanban/internal/logging"
)

// DefaultTimeout bounds each git invocation. Exceeding it is reported as
// failure, never as a hang.
const DefaultTimeout = 30 * time.Second

// Service runs git staging and commit operations against a workspace.
// Operations never return errors: timeouts, missing binaries and
// non-repository directories all collapse to a false outcome.
type Service struct {
	timeout time.Duration
	logger  logging.Logger
}

// NewService creates a checkpoint service. A non-positive timeout falls
// back to DefaultTimeout.
func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		timeout: timeout,
		logger:  logging.NewComponentLogger("Checkpoint"),
	}
}

// Checkpoint stages all changes in the workspace and commits them with a
// deterministic message referencing the task. Returns true on success or
// when there is nothing to commit.
func (s *Service) Checkpoint(ctx context.Context, workspace, taskID string) bool {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	return s.Commit(ctx, workspace, fmt.Sprintf("checkpoint: before task-%s", short))
}

// Commit stages all changes and commits with the given message. Returns
// true on success or when there is nothing to commit.
func (s *Service) Commit(ctx context.Context, workspace, message string) bool {
	if !s.runGit(ctx, workspace, "add", "-A") {
		return false
	}
	return s.runGit(ctx, workspace, "commit", "-m", message)
}

// runGit executes a git command in the workspace. Exit code 1 is treated
// as success because git commit exits 1 when there is nothing to commit.
func (s *Service) runGit(ctx context.Context, workspace string, args ...string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workspace
	cmd.Env = append(cmd.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
	)

	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		s.logger.Warn("git %v timed out in %s", args, workspace)
		return false
	}
	if err == nil {
		return true
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true
	}
	s.logger.Warn("git %v failed in %s: %v (%s)", args, workspace, err, output)
	return false
}
