package app

import (
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/config"
	"github.com/appetiteclub/kds/internal/kitchen"
)

// EngineOptions reads the engine settings from cfg.
func EngineOptions(cfg *config.Config) (kitchen.EngineOptions, error) {
	boundary, err := DayBoundary(cfg)
	if err != nil {
		return kitchen.EngineOptions{}, err
	}

	thresholds := kitchen.Thresholds{
		Attention: cfg.GetFloat("sla.attention", kitchen.DefaultThresholds.Attention),
		Overdue:   cfg.GetFloat("sla.overdue", kitchen.DefaultThresholds.Overdue),
	}
	if err := thresholds.Validate(); err != nil {
		return kitchen.EngineOptions{}, err
	}

	capacity := cfg.GetInt("queue.capacity", kitchen.DefaultCapacity)
	if capacity <= 0 {
		return kitchen.EngineOptions{}, fmt.Errorf("queue.capacity must be positive, got %d", capacity)
	}

	return kitchen.EngineOptions{
		Queue: kitchen.QueueOptions{
			Capacity:     capacity,
			DedupeWindow: cfg.GetDuration("queue.dedupe_window", kitchen.DefaultDedupeWindow),
			LogCapacity:  cfg.GetInt("stats.log_capacity", kitchen.DefaultLogCapacity),
		},
		Thresholds:           thresholds,
		WaitPerTicketMinutes: cfg.GetFloat("stats.wait_per_ticket", kitchen.DefaultWaitPerTicketMinutes),
		DayBoundary:          boundary,
		FeedBuffer:           cfg.GetInt("feed.buffer", kitchen.DefaultFeedBuffer),
		FeedBacklog:          cfg.GetInt("feed.backlog", kitchen.DefaultFeedBacklog),
	}, nil
}

// DayBoundary builds the business day boundary from stats.day_start (HH:MM)
// and stats.timezone (an IANA name or "Local").
func DayBoundary(cfg *config.Config) (kitchen.DayBoundary, error) {
	start, err := time.Parse("15:04", cfg.GetStringOrDef("stats.day_start", "00:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid stats.day_start: %w", err)
	}

	loc, err := time.LoadLocation(cfg.GetStringOrDef("stats.timezone", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid stats.timezone: %w", err)
	}

	return kitchen.BusinessDayStart(loc, start.Hour(), start.Minute()), nil
}
