package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, cfg.CheckpointTimeout)
	assert.Equal(t, "success", cfg.ExhaustionPolicy)
	assert.Equal(t, "claude", cfg.AgentCommand)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, filepath.Join(cfg.ConfigDir, "mcps.yaml"), cfg.MCPRegistryPath())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kanban.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9090\nexhaustion_policy: review\nheartbeat_interval: 10s\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "review", cfg.ExhaustionPolicy)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("KANBAN_PORT", "7070")
	t.Setenv("KANBAN_AGENT_COMMAND", "claude-next")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "claude-next", cfg.AgentCommand)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}
