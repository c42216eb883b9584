package kitchen

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var baseTime = time.Date(2024, 11, 23, 12, 0, 0, 0, time.UTC)

// manualClock is a Clock tests move by hand.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// fakeTicker fires only when the test sends on it.
type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *fakeTicker) source() TickSource {
	return func(time.Duration) Ticker { return t }
}

// MockTicketArchive is a test mock for TicketArchive.
type MockTicketArchive struct {
	mu       sync.Mutex
	saved    []ArchivedTicket
	SaveFunc func(ctx context.Context, t *ArchivedTicket) error
	ListFunc func(ctx context.Context, filter ArchiveFilter) ([]ArchivedTicket, error)
}

func NewMockTicketArchive() *MockTicketArchive {
	return &MockTicketArchive{}
}

func (m *MockTicketArchive) Save(ctx context.Context, t *ArchivedTicket) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, t)
	}
	m.mu.Lock()
	m.saved = append(m.saved, *t)
	m.mu.Unlock()
	return nil
}

func (m *MockTicketArchive) List(ctx context.Context, filter ArchiveFilter) ([]ArchivedTicket, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ArchivedTicket(nil), m.saved...), nil
}

func (m *MockTicketArchive) Saved() []ArchivedTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ArchivedTicket(nil), m.saved...)
}

// newTicket builds an open ticket created at createdAt with one item per
// preparation time.
func newTicket(createdAt time.Time, prepMinutes ...float64) Ticket {
	items := make([]LineItem, len(prepMinutes))
	for i, m := range prepMinutes {
		items[i] = LineItem{Name: "dish", Quantity: 1, PreparationMinutes: m}
	}
	return Ticket{
		ID:        uuid.New(),
		Label:     Label{TableNumber: 1},
		Items:     items,
		CreatedAt: createdAt,
	}
}

func newTestEngine(clock Clock, opts EngineOptions) *Engine {
	opts.Clock = clock
	if opts.DayBoundary == nil {
		opts.DayBoundary = BusinessDayStart(time.UTC, 0, 0)
	}
	e, err := NewEngine(opts, nil)
	if err != nil {
		panic(err)
	}
	return e
}

// receive waits for the next event or fails after a second.
func receive(ch <-chan Event) (Event, bool) {
	select {
	case evt, ok := <-ch:
		return evt, ok
	case <-time.After(time.Second):
		return Event{}, false
	}
}

const (
	timeoutShort = time.Second
	tickShort    = 10 * time.Millisecond
)
