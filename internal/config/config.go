// Package config resolves process-level settings: where the database
// file lives and how the worker supervisor is tuned. These are
// distinct from the store-backed keys internal/settings manages,
// which change job defaults without a process restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rezkam/queuectl/internal/env"
	"github.com/rezkam/queuectl/internal/observability"
)

// Config is the full set of process-level knobs, loaded from
// environment variables with sensible defaults applied for anything unset.
type Config struct {
	DBPath            string        `env:"QUEUECTL_DB_PATH"`
	LeaseTTL          time.Duration `env:"QUEUECTL_LEASE_TTL"`
	PollInterval      time.Duration `env:"QUEUECTL_POLL_INTERVAL"`
	HeartbeatInterval time.Duration `env:"QUEUECTL_HEARTBEAT_INTERVAL"`
	CommandTimeout    time.Duration `env:"QUEUECTL_COMMAND_TIMEOUT"`

	Observability ObservabilityConfig
}

// ObservabilityConfig controls optional OTLP export.
type ObservabilityConfig struct {
	Enabled     bool   `env:"QUEUECTL_OTEL_ENABLED"`
	ServiceName string `env:"QUEUECTL_OTEL_SERVICE_NAME"`
}

// Load reads environment variables into a Config, filling in defaults
// for anything left unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if cfg.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve default db path: %w", err)
		}
		cfg.DBPath = path
	}
	if cfg.LeaseTTL == 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 10 * time.Second
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 5 * time.Minute
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "queuectl-worker"
	}

	return cfg, nil
}

// defaultDBPath returns ${HOME}/.queuectl/queuectl.db, creating the
// containing directory with owner-only permissions if needed.
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".queuectl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "queuectl.db"), nil
}

// ObservabilityProviders builds an observability.Config from cfg.
func (c Config) ObservabilityProviders() observability.Config {
	return observability.Config{
		Enabled:     c.Observability.Enabled,
		ServiceName: c.Observability.ServiceName,
	}
}
