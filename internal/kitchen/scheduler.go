package kitchen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/enums/severity"
)

const DefaultTickInterval = time.Second

var ErrSchedulerStopped = errors.New("scheduler stopped")

// Scheduler re-evaluates the board at a fixed interval. It only reads the
// queue and publishes; it never changes ticket state.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	ticks    TickSource
	logger   logger.Logger

	// tickMu serializes timer ticks with manual Tick calls.
	tickMu    sync.Mutex
	tiers     map[TicketID]severity.Tier
	lastStats *StatsSnapshot

	stateMu  sync.Mutex
	started  bool
	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(engine *Engine, interval time.Duration, ticks TickSource, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNoop()
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if ticks == nil {
		ticks = NewTimeTicker
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		ticks:    ticks,
		logger:   log.With("component", "scheduler"),
		tiers:    make(map[TicketID]severity.Tier),
		stopCh:   make(chan struct{}),
	}
}

// Start runs an immediate tick and then one per interval until ctx is done
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if s.started {
		return nil
	}
	s.started = true

	ticker := s.ticks(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		s.Tick(s.engine.Clock().Now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C():
				s.Tick(s.engine.Clock().Now())
			}
		}
	}()

	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts the timer and waits for an in-flight tick. It is safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.stateMu.Lock()
	s.stopped = true
	s.stateMu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.logger.Info("scheduler stopped")
	})
	s.wg.Wait()
}

// Tick evaluates the board at now and stores it for readers. It publishes a
// tier change for every ticket that escalated since the previous tick (a
// ticket first seen above on-time counts as escalated from on-time) and a
// stats update when the figures moved.
func (s *Scheduler) Tick(now time.Time) Board {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	// Holding the engine lock keeps tier changes ordered after the creation
	// and before the completion of the ticket they describe.
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()

	board := s.engine.Recompute(now)

	seen := make(map[TicketID]struct{}, len(board.Tickets))
	for i := range board.Tickets {
		view := &board.Tickets[i]
		id := view.Ticket.ID
		seen[id] = struct{}{}

		current := view.Evaluation.Tier
		previous, tracked := s.tiers[id]
		if !tracked {
			previous = severity.Tiers.OnTime
		}
		if !current.Above(previous) {
			s.tiers[id] = previous
			continue
		}

		s.tiers[id] = current
		ticket := view.Ticket.clone()
		eval := view.Evaluation
		prev := previous
		s.engine.Feed().Publish(Event{
			Type:         EventTierChanged,
			OccurredAt:   now,
			Ticket:       &ticket,
			Evaluation:   &eval,
			PreviousTier: &prev,
		})
		s.logger.Info("ticket escalated", "ticket_id", id, "from", previous.Code(), "to", current.Code())
	}

	for id := range s.tiers {
		if _, ok := seen[id]; !ok {
			delete(s.tiers, id)
		}
	}

	if s.lastStats == nil || !s.lastStats.Equivalent(board.Stats) {
		stats := board.Stats
		s.lastStats = &stats
		s.engine.Feed().Publish(Event{
			Type:       EventStatsUpdated,
			OccurredAt: now,
			Stats:      &stats,
		})
	}

	s.engine.publishBoard(board)
	return board
}
