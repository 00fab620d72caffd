package checkpoint

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init")
	run("config", "user.email", "board@example.com")
	run("config", "user.name", "Board")
	return dir
}

func TestCheckpointNonRepositoryReturnsFalse(t *testing.T) {
	requireGit(t)
	svc := NewService(0)

	ok := svc.Checkpoint(context.Background(), t.TempDir(), "task-123")
	require.False(t, ok)
}

func TestCheckpointCommitsPendingChanges(t *testing.T) {
	requireGit(t)
	svc := NewService(0)
	dir := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	ok := svc.Checkpoint(context.Background(), dir, "0123456789abcdef")
	require.True(t, ok)

	cmd := exec.Command("git", "log", "--oneline", "-1")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	require.Contains(t, string(out), "checkpoint: before task-01234567")
}

func TestCommitNothingToCommitIsSuccess(t *testing.T) {
	requireGit(t)
	svc := NewService(0)
	dir := initRepo(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.True(t, svc.Commit(context.Background(), dir, "first"))

	// Second commit has nothing staged; git exits 1 which counts as success.
	require.True(t, svc.Commit(context.Background(), dir, "empty"))
}

func TestCommitTimeoutReturnsFalse(t *testing.T) {
	requireGit(t)
	svc := NewService(time.Nanosecond)
	dir := initRepo(t)

	require.False(t, svc.Commit(context.Background(), dir, "too slow"))
}
