package app

import (
	"testing"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineOptionsDefaults(t *testing.T) {
	opts, err := EngineOptions(config.NewConfig())

	require.NoError(t, err)
	assert.Equal(t, kitchen.DefaultCapacity, opts.Queue.Capacity)
	assert.Equal(t, kitchen.DefaultDedupeWindow, opts.Queue.DedupeWindow)
	assert.Equal(t, kitchen.DefaultLogCapacity, opts.Queue.LogCapacity)
	assert.Equal(t, kitchen.DefaultThresholds, opts.Thresholds)
	assert.InDelta(t, 5.0, opts.WaitPerTicketMinutes, 1e-9)
	assert.NotNil(t, opts.DayBoundary)
}

func TestEngineOptionsOverrides(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Set("queue.capacity", 12)
	cfg.Set("queue.dedupe_window", "5m")
	cfg.Set("sla.attention", 0.5)
	cfg.Set("sla.overdue", 0.9)
	cfg.Set("stats.day_start", "04:30")
	cfg.Set("stats.timezone", "UTC")
	cfg.Set("stats.log_capacity", 500)

	opts, err := EngineOptions(cfg)

	require.NoError(t, err)
	assert.Equal(t, 12, opts.Queue.Capacity)
	assert.Equal(t, 5*time.Minute, opts.Queue.DedupeWindow)
	assert.Equal(t, 500, opts.Queue.LogCapacity)
	assert.Equal(t, kitchen.Thresholds{Attention: 0.5, Overdue: 0.9}, opts.Thresholds)

	start := opts.DayBoundary(time.Date(2024, 11, 24, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 11, 23, 4, 30, 0, 0, time.UTC), start)
}

func TestEngineOptionsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{name: "invertedThresholds", key: "sla.attention", value: 1.5},
		{name: "zeroCapacity", key: "queue.capacity", value: 0},
		{name: "badDayStart", key: "stats.day_start", value: "4am"},
		{name: "badTimezone", key: "stats.timezone", value: "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.Set(tt.key, tt.value)

			_, err := EngineOptions(cfg)

			assert.Error(t, err)
		})
	}
}
