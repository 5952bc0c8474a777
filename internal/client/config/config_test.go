package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, "healthsync.db", c.DatabasePath)
	assert.Equal(t, "127.0.0.1:8088", c.HTTPAddr)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, 3*time.Second, c.StatusResetDelay)
	assert.True(t, c.SyncOnStart)
	assert.Equal(t, 2*time.Second, c.RetryBackoffMin)
	assert.Equal(t, 2*time.Minute, c.RetryBackoffMax)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoad_UsesDefaultsWithoutArgs(t *testing.T) {
	cfg := load(nil)

	require.NotNil(t, cfg, "load must not return nil")
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoad_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr": "json:1",
		"database_path":        "/data/json.db",
		"retry_backoff_max":    "0s",
	})

	cfg := load([]string{"-config", path, "-a", "flag:2", "-unrelated", "x"})

	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, "/data/json.db", cfg.DatabasePath)
	assert.Zero(t, cfg.RetryBackoffMax)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}
