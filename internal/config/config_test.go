package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbordev/arbor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesPartially(t *testing.T) {
	dir := t.TempDir()
	raw := `
cache:
  max_entries: 32
pool:
  capacity: 5
monitor:
  latency_ceiling: 100ms
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(raw), 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Cache.MaxEntries)
	assert.Equal(t, 5, cfg.Pool.Capacity)
	assert.Equal(t, 100*time.Millisecond, cfg.Monitor.LatencyCeiling.Std())

	// Untouched fields keep their defaults.
	assert.Equal(t, 256, cfg.Pool.MaxCapacity)
	assert.Equal(t, 120, cfg.Monitor.Window)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	raw := `
pool:
  capacity: 50
  max_capacity: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(raw), 0644))
	_, err := config.Load(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("cache: ["), 0644))
	_, err = config.Load(dir)
	require.Error(t, err)
}
