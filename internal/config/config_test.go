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
	cfg, err := Load("KDS", nil)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.GetInt("queue.capacity", 0))
	assert.Equal(t, time.Second, cfg.GetDuration("scheduler.interval", 0))
	assert.Equal(t, 15*time.Minute, cfg.GetDuration("queue.dedupe_window", 0))
	assert.InDelta(t, 0.70, cfg.GetFloat("sla.attention", 0), 1e-9)
	assert.False(t, cfg.GetBool("demo.enabled"))
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kds.yaml")
	content := "queue:\n  capacity: 12\nsla:\n  attention: 0.5\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("KDS_QUEUE_CAPACITY", "20")
	t.Setenv("KDS_QUEUE_DEDUPE_WINDOW", "2m")
	t.Setenv("KDS_NATS_STREAM_ENABLED", "true")
	t.Setenv("KDS_STATS_LOG_CAPACITY", "500")

	cfg, err := Load("KDS", []string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.GetInt("queue.capacity", 0), "env overrides file")
	assert.InDelta(t, 0.5, cfg.GetFloat("sla.attention", 0), 1e-9, "file overrides defaults")
	assert.Equal(t, 2*time.Minute, cfg.GetDuration("queue.dedupe_window", 0))
	assert.True(t, cfg.GetBool("nats.stream.enabled"))
	assert.Equal(t, 500, cfg.GetInt("stats.log_capacity", 0))

	level, ok := cfg.GetString("log.level")
	assert.True(t, ok)
	assert.Equal(t, "debug", level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("KDS", []string{"--config", "/does/not/exist.yaml"})
	assert.Error(t, err)
}

func TestGetters(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{name: "nilConfig", cfg: nil},
		{name: "defaultsOnly", cfg: NewConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 3, tt.cfg.GetInt("missing.key", 3))
			assert.Equal(t, "x", tt.cfg.GetStringOrDef("missing.key", "x"))
			assert.Equal(t, time.Minute, tt.cfg.GetDuration("missing.key", time.Minute))
		})
	}
}

func TestSetOverrides(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("queue.capacity", 3)
	assert.Equal(t, 3, cfg.GetInt("queue.capacity", 0))
}
