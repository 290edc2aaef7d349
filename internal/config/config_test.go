package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rezkam/queuectl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.LeaseTTL)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 5*time.Minute, cfg.CommandTimeout)
	assert.Equal(t, "queuectl-worker", cfg.Observability.ServiceName)
	assert.Equal(t, filepath.Base(cfg.DBPath), "queuectl.db")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("QUEUECTL_LEASE_TTL", "1m")
	t.Setenv("QUEUECTL_DB_PATH", "/tmp/custom.db")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.LeaseTTL)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
}
