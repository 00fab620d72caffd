// Package mcp resolves the tool servers an agent run is permitted to use
// from a YAML registry on disk.
package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"kanban/internal/logging"
)

// ServerConfig describes how to launch one tool server.
type ServerConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Env         map[string]string `yaml:"env"`
	Description string            `yaml:"description"`
}

// Defaults holds the registry's default selection.
type Defaults struct {
	AllowedMCPs []string `yaml:"allowed_mcps"`
	Template    string   `yaml:"template"`
}

// Config is the parsed registry file.
type Config struct {
	Defaults Defaults                `yaml:"defaults"`
	Servers  map[string]ServerConfig `yaml:"servers"`
}

// Option describes one enabled server for the schema endpoint.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

const defaultConfig = `# Tool server registry for agent runs.

defaults:
  allowed_mcps:
    - filesystem
  template: null

servers:
  filesystem:
    enabled: true
    command: npx
    args: ["-y", "@modelcontextprotocol/server-filesystem", "${WORKSPACE_PATH}"]
    env:
      WORKSPACE_PATH: "${WORKSPACE_PATH}"
    description: "Filesystem operations in workspace"

  perplexity:
    enabled: false
    command: npx
    args: ["-y", "@anthropic/mcp-server-perplexity"]
    env:
      PERPLEXITY_API_KEY: "${PERPLEXITY_API_KEY}"
    description: "Web search and research"
`

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Registry loads and resolves tool server configurations.
type Registry struct {
	path   string
	logger logging.Logger
}

// NewRegistry creates a registry backed by the YAML file at path. The file
// is created with defaults on first load when missing.
func NewRegistry(path string) *Registry {
	return &Registry{
		path:   path,
		logger: logging.NewComponentLogger("MCPRegistry"),
	}
}

// Load parses the registry file, creating it with defaults when absent.
func (r *Registry) Load() (*Config, error) {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
		if err := os.WriteFile(r.path, []byte(defaultConfig), 0o644); err != nil {
			return nil, fmt.Errorf("write default registry: %w", err)
		}
		r.logger.Info("Created default tool registry at %s", r.path)
	}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return &config, nil
}

// DefaultTools returns the registry's default tool selection.
func (r *Registry) DefaultTools() []string {
	config, err := r.Load()
	if err != nil || len(config.Defaults.AllowedMCPs) == 0 {
		return []string{"filesystem"}
	}
	return config.Defaults.AllowedMCPs
}

// Options lists enabled servers for the schema endpoint.
func (r *Registry) Options() ([]Option, error) {
	config, err := r.Load()
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(config.Servers))
	for name, server := range config.Servers {
		if !server.Enabled {
			continue
		}
		options = append(options, Option{
			Value:       name,
			Label:       labelFor(name),
			Description: server.Description,
		})
	}
	return options, nil
}

// Resolve returns the launch configuration for the requested servers with
// ${VAR} placeholders expanded. WORKSPACE_PATH always resolves to the
// run's workspace; other placeholders fall back to process environment and
// unknown names expand to empty. Disabled or unknown servers are skipped.
func (r *Registry) Resolve(names []string, workspacePath string) (map[string]any, error) {
	config, err := r.Load()
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]any)
	for _, name := range names {
		server, ok := config.Servers[name]
		if !ok || !server.Enabled {
			r.logger.Warn("Skipping unavailable tool server %q", name)
			continue
		}

		args := make([]string, len(server.Args))
		for i, arg := range server.Args {
			args[i] = expand(arg, workspacePath)
		}
		env := make(map[string]string, len(server.Env))
		for key, value := range server.Env {
			env[key] = expand(value, workspacePath)
		}

		resolved[name] = map[string]any{
			"command": server.Command,
			"args":    args,
			"env":     env,
		}
	}
	return resolved, nil
}

func expand(value, workspacePath string) string {
	return placeholderPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if name == "WORKSPACE_PATH" {
			return workspacePath
		}
		return os.Getenv(name)
	})
}

func labelFor(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
