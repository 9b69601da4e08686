package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval)
	assert.Equal(t, 2, cfg.Scheduler.Concurrency)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.CheckTimeout)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.AI.Enabled)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_path: /tmp/test.db
scheduler:
  tick_interval: 30s
  concurrency: 4
browser:
  headless: false
  max_contexts: 3
pipeline:
  history_keep: 20
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.TickInterval)
	assert.Equal(t, 4, cfg.Scheduler.Concurrency)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Browser.MaxContexts)
	assert.Equal(t, 20, cfg.Pipeline.HistoryKeep)
	// Untouched fields keep their defaults
	assert.Equal(t, 45*time.Second, cfg.Scheduler.CheckTimeout)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PAGEWATCH_DB", "/tmp/env.db")
	t.Setenv("PAGEWATCH_TICK", "90s")
	t.Setenv("PAGEWATCH_CONCURRENCY", "8")
	t.Setenv("PAGEWATCH_AI", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.DatabasePath)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.TickInterval)
	assert.Equal(t, 8, cfg.Scheduler.Concurrency)
	assert.False(t, cfg.AI.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty database path", mutate: func(c *Config) { c.DatabasePath = "" }},
		{name: "zero concurrency", mutate: func(c *Config) { c.Scheduler.Concurrency = 0 }},
		{name: "zero browser contexts", mutate: func(c *Config) { c.Browser.MaxContexts = 0 }},
		{name: "cooldown ceiling below base", mutate: func(c *Config) { c.Scheduler.MaxCooldown = time.Minute }},
		{name: "tolerance out of range", mutate: func(c *Config) { c.Pipeline.VisualTolerance = 300 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
