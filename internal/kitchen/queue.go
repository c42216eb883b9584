package kitchen

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/enums/ticketstate"
	"github.com/google/uuid"
)

const (
	DefaultCapacity     = 8
	DefaultDedupeWindow = 15 * time.Minute
	DefaultLogCapacity  = 2000
)

type QueueOptions struct {
	// Capacity is the maximum number of open tickets.
	Capacity int
	// DedupeWindow is how long a closed ticket id keeps rejecting re-adds.
	DedupeWindow time.Duration
	// LogCapacity bounds the completion log.
	LogCapacity int
	// DayBoundary decides which records are old enough to prune: the log
	// keeps the current and the previous business day.
	DayBoundary DayBoundary
	Evaluator   Evaluator
	Clock       Clock
}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.DedupeWindow <= 0 {
		o.DedupeWindow = DefaultDedupeWindow
	}
	if o.LogCapacity <= 0 {
		o.LogCapacity = DefaultLogCapacity
	}
	if o.DayBoundary == nil {
		o.DayBoundary = LocalMidnight
	}
	if o.Evaluator == (Evaluator{}) {
		o.Evaluator = defaultEvaluator
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	return o
}

// Queue is the authoritative set of open tickets. All state transitions go
// through it under a single write lock; reads share a read lock and only
// ever see whole tickets.
type Queue struct {
	mu sync.RWMutex
	// open tickets indexed by id
	open map[TicketID]*Ticket
	// closed ids -> time they closed, for the dedupe window
	closed map[TicketID]time.Time
	log    *CompletionLog
	seq    uint64

	opts   QueueOptions
	logger logger.Logger
}

// Snapshot is a consistent view of the queue: open tickets oldest first and
// the completion log, read under one lock.
type Snapshot struct {
	Open    []Ticket
	Records []CompletionRecord
}

func NewQueue(opts QueueOptions, log logger.Logger) *Queue {
	if log == nil {
		log = logger.NewNoop()
	}
	opts = opts.withDefaults()
	return &Queue{
		open:   make(map[TicketID]*Ticket),
		closed: make(map[TicketID]time.Time),
		log:    NewCompletionLog(opts.LogCapacity),
		opts:   opts,
		logger: log.With("component", "queue"),
	}
}

// Add stores a new open ticket. A zero CreatedAt is stamped with the queue
// clock. The stored copy is returned.
func (q *Queue) Add(t Ticket) (Ticket, error) {
	if err := t.Validate(); err != nil {
		return Ticket{}, err
	}
	if t.State != "" && t.State != ticketstate.States.Open.Code() {
		return Ticket{}, fmt.Errorf("%w: ticket %s has state %q", ErrInvalidTicket, t.ID, t.State)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.opts.Clock.Now()
	q.expireClosedLocked(now)

	if _, exists := q.open[t.ID]; exists {
		return Ticket{}, fmt.Errorf("%w: %s is already open", ErrDuplicateID, t.ID)
	}
	if closedAt, exists := q.closed[t.ID]; exists {
		return Ticket{}, fmt.Errorf("%w: %s was closed at %s", ErrDuplicateID, t.ID, closedAt.Format(time.RFC3339))
	}
	if len(q.open) >= q.opts.Capacity {
		return Ticket{}, fmt.Errorf("%w: %d open tickets", ErrQueueFull, len(q.open))
	}

	stored := t.clone()
	stored.State = ticketstate.States.Open.Code()
	stored.CompletedAt = nil
	stored.CancelledAt = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	for i := range stored.Items {
		if stored.Items[i].ID == uuid.Nil {
			stored.Items[i].ID = uuid.New()
		}
	}
	q.seq++
	stored.seq = q.seq
	q.open[stored.ID] = &stored

	q.logger.Debug("ticket added", "ticket_id", stored.ID, "label", stored.Label.String(), "open", len(q.open))
	return stored.clone(), nil
}

// Complete closes an open ticket as served at at. Its tier at that moment
// is frozen into the completion log. Completing a ticket that is not open
// returns ErrNotFound and changes nothing.
func (q *Queue) Complete(id TicketID, at time.Time) (Ticket, CompletionRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.open[id]
	if !ok {
		return Ticket{}, CompletionRecord{}, fmt.Errorf("%w: %s is not open", ErrNotFound, id)
	}

	eval, err := q.opts.Evaluator.Evaluate(t, at)
	if err != nil && !errors.Is(err, ErrClockSkew) {
		return Ticket{}, CompletionRecord{}, err
	}
	if eval.ClockSkew {
		q.logger.Info("completion precedes ticket creation, elapsed clamped to zero", "ticket_id", id)
	}

	completedAt := at
	t.State = ticketstate.States.Completed.Code()
	t.CompletedAt = &completedAt

	rec := q.closeLocked(t, at, eval)
	return t.clone(), rec, nil
}

// Cancel closes an open ticket without serving it. Cancelled tickets are
// logged but never counted in stats.
func (q *Queue) Cancel(id TicketID) (Ticket, CompletionRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.open[id]
	if !ok {
		return Ticket{}, CompletionRecord{}, fmt.Errorf("%w: %s is not open", ErrNotFound, id)
	}

	now := q.opts.Clock.Now()
	eval, _ := q.opts.Evaluator.Evaluate(t, now)

	cancelledAt := now
	t.State = ticketstate.States.Cancelled.Code()
	t.CancelledAt = &cancelledAt

	rec := q.closeLocked(t, now, eval)
	return t.clone(), rec, nil
}

func (q *Queue) closeLocked(t *Ticket, at time.Time, eval Evaluation) CompletionRecord {
	rec := newCompletionRecord(t, at, eval)

	now := q.opts.Clock.Now()
	q.log.Append(rec)
	if pruned := q.log.PruneBefore(previousDayStart(q.opts.DayBoundary, now)); pruned > 0 {
		q.logger.Debug("completion log pruned", "records", pruned)
	}

	delete(q.open, t.ID)
	q.closed[t.ID] = now

	q.logger.Debug("ticket closed", "ticket_id", t.ID, "state", t.State, "tier", rec.Tier.Code())
	return rec
}

func (q *Queue) expireClosedLocked(now time.Time) {
	for id, closedAt := range q.closed {
		if now.Sub(closedAt) >= q.opts.DedupeWindow {
			delete(q.closed, id)
		}
	}
}

// Get returns a copy of an open ticket.
func (q *Queue) Get(id TicketID) (Ticket, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	t, ok := q.open[id]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %s is not open", ErrNotFound, id)
	}
	return t.clone(), nil
}

// ListOpen returns copies of the open tickets, oldest first. This is the
// order the kitchen display renders them in.
func (q *Queue) ListOpen() []Ticket {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.listOpenLocked()
}

func (q *Queue) listOpenLocked() []Ticket {
	result := make([]Ticket, 0, len(q.open))
	for _, t := range q.open {
		result = append(result, t.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].seq < result[j].seq
	})
	return result
}

// Snapshot reads open tickets and the completion log under one lock.
func (q *Queue) Snapshot() Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return Snapshot{
		Open:    q.listOpenLocked(),
		Records: q.log.Records(),
	}
}

// Count returns the number of open tickets.
func (q *Queue) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.open)
}

func (q *Queue) Capacity() int {
	return q.opts.Capacity
}

func (q *Queue) Evaluator() Evaluator {
	return q.opts.Evaluator
}
