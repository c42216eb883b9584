package app

import (
	"context"
	"errors"
	"fmt"
)

// Lifecycle is a component started before the servers and stopped after
// them.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// LifecycleHooks adapts plain functions to Lifecycle. Either hook may be nil.
type LifecycleHooks struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h LifecycleHooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h LifecycleHooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}

// startAll starts components in order. On failure the ones already started
// are stopped in reverse order.
func startAll(ctx context.Context, components []Lifecycle) (int, error) {
	for i, c := range components {
		if err := c.Start(ctx); err != nil {
			return i, fmt.Errorf("cannot start component %d: %w", i, err)
		}
	}
	return len(components), nil
}

// stopAll stops the first n components in reverse order and joins errors.
func stopAll(ctx context.Context, components []Lifecycle, n int) error {
	var errs []error
	for i := n - 1; i >= 0; i-- {
		if err := components[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
