package kitchen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
)

// TicketView is an open ticket together with its evaluation at one instant.
type TicketView struct {
	Ticket     Ticket     `json:"ticket"`
	Label      string     `json:"label"`
	Evaluation Evaluation `json:"evaluation"`
}

// Board is the result of one evaluation pass: every open ticket, oldest
// first, and the stats at the same instant.
type Board struct {
	At      time.Time     `json:"at"`
	Tickets []TicketView  `json:"tickets"`
	Stats   StatsSnapshot `json:"stats"`
}

// TicketService is the surface order entry and kitchen collaborators use.
type TicketService interface {
	PlaceOrder(label Label, items []LineItem) (TicketID, error)
	Add(t Ticket) (Ticket, error)
	MarkServed(id TicketID) (Ticket, error)
	CancelOrder(id TicketID) (Ticket, error)
	ListOpenTickets() []TicketView
	Ticket(id TicketID) (TicketView, error)
	GetStats() StatsSnapshot
	Board() Board
	Subscribe(ctx context.Context) (<-chan Event, string)
	SubscribeBoard(ctx context.Context) (<-chan Event, Board, string)
	Done() <-chan struct{}
}

type EngineOptions struct {
	Queue                QueueOptions
	Thresholds           Thresholds
	WaitPerTicketMinutes float64
	DayBoundary          DayBoundary
	Clock                Clock
	FeedBuffer           int
	FeedBacklog          int
}

// Engine ties the queue, evaluator, stats and change feed together. It is
// the single writer: every mutation and the event describing it happen
// under one lock so the feed order matches the mutation order.
type Engine struct {
	mu sync.Mutex

	queue     *Queue
	evaluator Evaluator
	stats     StatsAggregator
	feed      *Feed
	clock     Clock
	board     atomic.Pointer[Board]
	logger    logger.Logger
}

func NewEngine(opts EngineOptions, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.NewNoop()
	}

	thresholds := opts.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	evaluator, err := NewEvaluator(thresholds)
	if err != nil {
		return nil, fmt.Errorf("cannot create evaluator: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock
	}
	boundary := opts.DayBoundary
	if boundary == nil {
		boundary = LocalMidnight
	}

	qopts := opts.Queue
	qopts.Evaluator = evaluator
	qopts.Clock = clock
	qopts.DayBoundary = boundary

	return &Engine{
		queue:     NewQueue(qopts, log),
		evaluator: evaluator,
		stats:     NewStatsAggregator(boundary, opts.WaitPerTicketMinutes),
		feed:      NewFeed(opts.FeedBuffer, opts.FeedBacklog, log),
		clock:     clock,
		logger:    log.With("component", "engine"),
	}, nil
}

// PlaceOrder opens a ticket for label with a fresh id, created now.
func (e *Engine) PlaceOrder(label Label, items []LineItem) (TicketID, error) {
	t := Ticket{
		ID:    uuid.New(),
		Label: label,
		Items: normalizeItems(items),
	}
	stored, err := e.Add(t)
	if err != nil {
		return uuid.Nil, err
	}
	return stored.ID, nil
}

// Add opens a ticket whose id is assigned upstream, such as an order id
// arriving over the message bus.
func (e *Engine) Add(t Ticket) (Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stored, err := e.queue.Add(t)
	if err != nil {
		return Ticket{}, err
	}

	now := e.clock.Now()
	eval, _ := e.evaluator.Evaluate(&stored, now)
	published := stored.clone()
	e.feed.Publish(Event{
		Type:       EventTicketCreated,
		OccurredAt: now,
		Ticket:     &published,
		Evaluation: &eval,
	})

	e.logger.Info("ticket opened", "ticket_id", stored.ID, "label", stored.Label.String(), "required_minutes", stored.RequiredMinutes())
	return stored, nil
}

// MarkServed completes a ticket now.
func (e *Engine) MarkServed(id TicketID) (Ticket, error) {
	return e.CompleteAt(id, e.clock.Now())
}

// CompleteAt completes a ticket at an explicit time.
func (e *Engine) CompleteAt(id TicketID, at time.Time) (Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, rec, err := e.queue.Complete(id, at)
	if err != nil {
		return Ticket{}, err
	}

	published := t.clone()
	e.feed.Publish(Event{
		Type:       EventTicketCompleted,
		OccurredAt: e.clock.Now(),
		Ticket:     &published,
		Record:     &rec,
	})

	e.logger.Info("ticket served", "ticket_id", id, "tier", rec.Tier.Code(), "elapsed_minutes", rec.ElapsedMinutes)
	return t, nil
}

// CancelOrder cancels an open ticket.
func (e *Engine) CancelOrder(id TicketID) (Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, rec, err := e.queue.Cancel(id)
	if err != nil {
		return Ticket{}, err
	}

	published := t.clone()
	e.feed.Publish(Event{
		Type:       EventTicketCancelled,
		OccurredAt: e.clock.Now(),
		Ticket:     &published,
		Record:     &rec,
	})

	e.logger.Info("ticket cancelled", "ticket_id", id)
	return t, nil
}

// ListOpenTickets evaluates every open ticket now, oldest first.
func (e *Engine) ListOpenTickets() []TicketView {
	return e.evaluate(e.queue.ListOpen(), e.clock.Now())
}

// Ticket evaluates one open ticket now.
func (e *Engine) Ticket(id TicketID) (TicketView, error) {
	t, err := e.queue.Get(id)
	if err != nil {
		return TicketView{}, err
	}
	views := e.evaluate([]Ticket{t}, e.clock.Now())
	if len(views) == 0 {
		return TicketView{}, fmt.Errorf("%w: %s cannot be evaluated", ErrInvalidTicket, id)
	}
	return views[0], nil
}

// GetStats derives the stats now.
func (e *Engine) GetStats() StatsSnapshot {
	return e.stats.Compute(e.queue.Snapshot(), e.clock.Now())
}

// Board returns the board published by the last tick, or computes one if
// no tick has run yet.
func (e *Engine) Board() Board {
	if b := e.board.Load(); b != nil {
		return *b
	}
	return e.Recompute(e.clock.Now())
}

// Recompute evaluates tickets and stats from a single queue snapshot.
func (e *Engine) Recompute(now time.Time) Board {
	snap := e.queue.Snapshot()
	return Board{
		At:      now,
		Tickets: e.evaluate(snap.Open, now),
		Stats:   e.stats.Compute(snap, now),
	}
}

func (e *Engine) publishBoard(b Board) {
	e.board.Store(&b)
}

func (e *Engine) Subscribe(ctx context.Context) (<-chan Event, string) {
	return e.feed.Subscribe(ctx)
}

// SubscribeBoard registers a subscriber and evaluates a fresh board under
// the writer lock. Every change missing from the board is delivered on the
// returned channel.
func (e *Engine) SubscribeBoard(ctx context.Context) (<-chan Event, Board, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	events, id := e.feed.Subscribe(ctx)
	return events, e.Recompute(e.clock.Now()), id
}

func (e *Engine) Feed() *Feed {
	return e.feed
}

func (e *Engine) Queue() *Queue {
	return e.queue
}

func (e *Engine) Evaluator() Evaluator {
	return e.evaluator
}

func (e *Engine) Clock() Clock {
	return e.clock
}

// Close disconnects feed subscribers after they drain.
func (e *Engine) Close() {
	e.feed.Close()
}

// Done is closed once the change feed has shut down.
func (e *Engine) Done() <-chan struct{} {
	return e.feed.Done()
}

func (e *Engine) evaluate(tickets []Ticket, now time.Time) []TicketView {
	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		eval, err := e.evaluator.Evaluate(t, now)
		if err != nil {
			if !errors.Is(err, ErrClockSkew) {
				e.logger.Error("cannot evaluate ticket", "ticket_id", t.ID, "error", err)
				continue
			}
			e.logger.Debug("clock skew while evaluating ticket", "ticket_id", t.ID)
		}
		views = append(views, TicketView{
			Ticket:     *t,
			Label:      t.Label.String(),
			Evaluation: eval,
		})
	}
	return views
}

func normalizeItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Station != "" {
			item.Station = station.Resolve(item.Station)
		}
		out[i] = item
	}
	return out
}
