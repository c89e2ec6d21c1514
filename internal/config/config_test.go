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
	cfg, err := Load(t.TempDir()) // no config file present
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, "lru", cfg.Cache.Strategy)
	assert.Equal(t, int64(16<<20), cfg.Cache.MaxSizeBytes)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL)
	assert.NotEmpty(t, cfg.DBPath)
	assert.False(t, cfg.Debug)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
db_path: /tmp/custom.db
namespace: swarm
debug: true
cache:
  max_size_bytes: 1048576
  ttl: 5m
  strategy: lfu
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "swarm", cfg.Namespace)
	assert.True(t, cfg.Debug)
	assert.Equal(t, int64(1<<20), cfg.Cache.MaxSizeBytes)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "lfu", cfg.Cache.Strategy)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENSWARM_NAMESPACE", "from-env")
	t.Setenv("OPENSWARM_CACHE_STRATEGY", "fifo")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Namespace)
	assert.Equal(t, "fifo", cfg.Cache.Strategy)
}
