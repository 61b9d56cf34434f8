package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  mode: release
database:
  driver: memory
task:
  interval: 30
  archive_after_days: 0
notification:
  mode: concurrent
  pool_size: 4
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 30, cfg.Task.Interval)
	assert.Equal(t, 0, cfg.Task.ArchiveAfterDays)
	assert.Equal(t, "concurrent", cfg.Notification.Mode)
	assert.Equal(t, 4, cfg.Notification.PoolSize)
	assert.Equal(t, "debug", cfg.Log.GetLevel())
	// 未配置的项使用默认值
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "stdout", cfg.Log.GetOutput())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: memory\n")
	t.Setenv("TRACKER_SERVER_PORT", "7070")
	t.Setenv("TRACKER_TASK_INTERVAL", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Task.Interval)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: mysql\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestValidate(t *testing.T) {
	valid := Config{
		Database:     DatabaseConfig{Driver: DriverPostgres},
		Task:         TaskConfig{Interval: 60},
		Notification: NotificationConfig{Mode: "sequential"},
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Notification.Mode = "parallel"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Task.Interval = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Task.ArchiveAfterDays = -1
	assert.Error(t, bad.Validate())
}
