package config

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "relaydemo", cfg.App.Name)
	assert.Equal(t, 10, cfg.Relay.Tasks)
	assert.Equal(t, 4, cfg.Relay.Producers)
	assert.Equal(t, 5*time.Second, cfg.Relay.DrainTimeout)
	assert.Equal(t, "taskrelay", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	data := []byte(`
app:
  name: custom
relay:
  tasks: 3
  producers: 2
  drain_timeout: 2s
metrics:
  addr: ":9100"
log:
  format: json
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("TASKRELAY_RELAY_TASKS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.App.Name)
	assert.Equal(t, 7, cfg.Relay.Tasks)
	assert.Equal(t, 2, cfg.Relay.Producers)
	assert.Equal(t, 2*time.Second, cfg.Relay.DrainTimeout)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Relay: RelayConfig{Tasks: -1, Producers: 0},
		Log:   LogConfig{Format: "xml"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.tasks")
	assert.Contains(t, err.Error(), "relay.producers")
	assert.Contains(t, err.Error(), "relay.drain_timeout")
	assert.Contains(t, err.Error(), "log.format")
}

func TestValidate_TasksFitHandleSequence(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot exceed 32 bits here")
	}
	limit := int64(math.MaxUint32)
	cfg := Config{
		Relay: RelayConfig{Tasks: int(limit), Producers: 1, DrainTimeout: time.Second},
		Log:   LogConfig{Format: "text"},
	}
	require.NoError(t, cfg.Validate())

	cfg.Relay.Tasks = int(limit + 1)
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay.tasks")
}
