// Package config loads server configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server settings.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// DatabasePath is the sqlite file backing the board.
	DatabasePath string `mapstructure:"database_path"`
	// ConfigDir holds auxiliary files such as the tool server registry.
	ConfigDir string `mapstructure:"config_dir"`

	// HeartbeatInterval is the idle ceiling after which a synthetic
	// heartbeat event keeps a delivery channel alive.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// CheckpointTimeout bounds each git checkpoint/commit operation.
	CheckpointTimeout time.Duration `mapstructure:"checkpoint_timeout"`

	// ExhaustionPolicy decides the run outcome when the agent stream ends
	// without an explicit success signal: success, failure or review.
	ExhaustionPolicy string `mapstructure:"exhaustion_policy"`

	AgentCommand         string `mapstructure:"agent_command"`
	AgentSkipPermissions bool   `mapstructure:"agent_skip_permissions"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// MCPRegistryPath returns the location of the tool server registry file.
func (c Config) MCPRegistryPath() string {
	return filepath.Join(c.ConfigDir, "mcps.yaml")
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	baseDir := filepath.Join(home, ".kanban")

	v.SetDefault("host", "")
	v.SetDefault("port", 8080)
	v.SetDefault("database_path", filepath.Join(baseDir, "kanban.db"))
	v.SetDefault("config_dir", baseDir)
	v.SetDefault("heartbeat_interval", 30*time.Second)
	v.SetDefault("checkpoint_timeout", 30*time.Second)
	v.SetDefault("exhaustion_policy", "success")
	v.SetDefault("agent_command", "claude")
	v.SetDefault("agent_skip_permissions", true)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("log_level", "info")
}

// Load reads configuration from the optional file at path (YAML) with
// KANBAN_* environment variables taking precedence over file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KANBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}
