package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry", "mcps.yaml")
	registry := NewRegistry(path)

	config, err := registry.Load()
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, []string{"filesystem"}, config.Defaults.AllowedMCPs)
	require.Contains(t, config.Servers, "filesystem")
	require.True(t, config.Servers["filesystem"].Enabled)
}

func TestOptionsListsOnlyEnabledServers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcps.yaml")
	registry := NewRegistry(path)

	options, err := registry.Options()
	require.NoError(t, err)
	require.Len(t, options, 1)
	require.Equal(t, "filesystem", options[0].Value)
	require.Equal(t, "Filesystem", options[0].Label)
}

func TestResolveExpandsWorkspacePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcps.yaml")
	registry := NewRegistry(path)

	resolved, err := registry.Resolve([]string{"filesystem"}, "/srv/work")
	require.NoError(t, err)
	require.Contains(t, resolved, "filesystem")

	server := resolved["filesystem"].(map[string]any)
	require.Contains(t, server["args"].([]string), "/srv/work")
	require.Equal(t, "/srv/work", server["env"].(map[string]string)["WORKSPACE_PATH"])
}

func TestResolveSkipsDisabledAndUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcps.yaml")
	registry := NewRegistry(path)

	resolved, err := registry.Resolve([]string{"perplexity", "nonexistent"}, "/srv/work")
	require.NoError(t, err)
	require.Empty(t, resolved)
}

func TestResolveExpandsProcessEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcps.yaml")
	custom := `
defaults:
  allowed_mcps: [search]
servers:
  search:
    enabled: true
    command: srch
    env:
      API_KEY: "${KANBAN_TEST_SEARCH_KEY}"
`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))
	t.Setenv("KANBAN_TEST_SEARCH_KEY", "sekret")

	registry := NewRegistry(path)
	resolved, err := registry.Resolve([]string{"search"}, "")
	require.NoError(t, err)

	server := resolved["search"].(map[string]any)
	require.Equal(t, "sekret", server["env"].(map[string]string)["API_KEY"])
}
