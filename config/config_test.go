package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
env:
  env: test
  log:
    level: debug
    pretty: true
storage:
  driver: sqlite
  path: /var/lib/addrstore/test.db
  cacheSize: 64
  slowThreshold: 50ms
snapshot:
  bucketURL: mem://
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o600))

	return dir
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	dir := writeConfig(t, "test", testYAML)

	cfg, err := Load("test", dir)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env.Env)
	assert.Equal(t, "debug", cfg.Env.Log.Level)
	assert.True(t, cfg.Env.Log.Pretty)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/addrstore/test.db", cfg.Storage.Path)
	assert.Equal(t, 64, cfg.Storage.CacheSize)
	assert.Equal(t, 50*time.Millisecond, cfg.Storage.SlowThreshold)
	assert.Equal(t, "mem://", cfg.Snapshot.BucketURL)

	// Defaults
	assert.Equal(t, defaultServiceName, cfg.Env.ServiceName)
	assert.Equal(t, "stderr", cfg.Env.Log.Output)
	assert.Equal(t, int64(defaultImportMax), cfg.Import.MaxBytes)
	assert.Equal(t, defaultSnapshotPre, cfg.Snapshot.Prefix)
	assert.Equal(t, filepath.Join("/var/lib/addrstore", "snapshots"), cfg.SnapshotDir())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, "test", testYAML)
	t.Setenv("STORAGE_CACHESIZE", "8")
	t.Setenv("STORAGE_INMEMORY", "true")

	cfg, err := Load("test", dir)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Storage.CacheSize)
	assert.True(t, cfg.Storage.InMemory)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("absent", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverPebble, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("data", "addresses"), cfg.Storage.Path)
	assert.Equal(t, defaultCacheSize, cfg.Storage.CacheSize)
	assert.Equal(t, defaultLogLevel, cfg.Env.Log.Level)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, "test", "storage:\n  driver: bolt\n")

	_, err := Load("test", dir)
	assert.ErrorContains(t, err, "invalid config")
}

func TestLoadWithEnv_RequiresFile(t *testing.T) {
	_, err := LoadWithEnv[Config]("absent", t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)
}
