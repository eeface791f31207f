package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dkwon/relaychat/pkg/model"
)

// Config holds server configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`  // TCP bind address for the chat plane
	MetricsAddr string `yaml:"metrics_addr"` // HTTP bind address for /metrics (empty = disabled)
	MaxSessions int    `yaml:"max_sessions"` // registered session cap
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8080",
		MetricsAddr: ":8088",
		MaxSessions: model.DefaultMaxSessions,
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return cfg, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("server: parse config: %w", err)
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = model.DefaultMaxSessions
	}
	return cfg, nil
}
