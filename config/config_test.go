package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUsesMemoryBackend(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, time.Hour, cfg.Store.MemoryTTL)
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acp.yaml")
	yaml := []byte(`
listen: ":9090"
worker_pool_size: 4
store:
  backend: redis
  redis_addr: "localhost:6379"
debug: true
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o644))

	t.Setenv("ACP_LISTEN", ":7070")
	t.Setenv("ACP_STORE_BACKEND", "sql")
	t.Setenv("ACP_POSTGRES_DSN", "postgres://x")
	t.Setenv("PLATFORM_URL", "https://platform.example")
	t.Setenv("PRODUCTION_MODE", "true")
	t.Setenv("ACP_DEBUG", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, BackendSQL, cfg.Store.Backend)
	assert.Equal(t, "postgres://x", cfg.Store.PostgresDSN)
	assert.True(t, cfg.Registration.Enabled)
	assert.Equal(t, "https://platform.example", cfg.Registration.PlatformURL)
	assert.True(t, cfg.Registration.Production)
	assert.True(t, cfg.Debug)
}
