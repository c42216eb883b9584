package kitchen

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/enums/severity"
	"github.com/google/uuid"
)

type EventType string

const (
	EventTicketCreated   EventType = "ticket.created"
	EventTicketCompleted EventType = "ticket.completed"
	EventTicketCancelled EventType = "ticket.cancelled"
	EventTierChanged     EventType = "ticket.tier_changed"
	EventStatsUpdated    EventType = "stats.updated"
)

// Event is one entry of the change feed. Seq increases by one per published
// event, so subscribers can detect a resync.
type Event struct {
	Seq          uint64            `json:"seq"`
	Type         EventType         `json:"type"`
	OccurredAt   time.Time         `json:"occurred_at"`
	Ticket       *Ticket           `json:"ticket,omitempty"`
	Evaluation   *Evaluation       `json:"evaluation,omitempty"`
	PreviousTier *severity.Tier    `json:"previous_tier,omitempty"`
	Record       *CompletionRecord `json:"record,omitempty"`
	Stats        *StatsSnapshot    `json:"stats,omitempty"`
}

const (
	DefaultFeedBuffer  = 64
	DefaultFeedBacklog = 4096
)

// Feed fans events out to subscribers. Publish never blocks: each
// subscriber has its own pending queue drained by a pump goroutine, so
// every event reaches every connected subscriber in order. A subscriber
// whose backlog overflows is disconnected and its channel closed; it must
// resubscribe and resync from a fresh board. Close lets subscribers that
// are still reading drain what was queued before their channel closes.
type Feed struct {
	mu          sync.Mutex
	subscribers map[string]*subscription
	seq         uint64
	closed      bool
	done        chan struct{}

	buffer  int
	backlog int
	logger  logger.Logger
}

type subscription struct {
	id  string
	out chan Event

	mu      sync.Mutex
	pending []Event

	wake      chan struct{}
	done      chan struct{}
	drain     chan struct{}
	exited    chan struct{}
	once      sync.Once
	drainOnce sync.Once
}

func NewFeed(buffer, backlog int, log logger.Logger) *Feed {
	if log == nil {
		log = logger.NewNoop()
	}
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	if backlog <= 0 {
		backlog = DefaultFeedBacklog
	}
	return &Feed{
		subscribers: make(map[string]*subscription),
		done:        make(chan struct{}),
		buffer:      buffer,
		backlog:     backlog,
		logger:      log.With("component", "feed"),
	}
}

// Subscribe registers a subscriber until ctx is done or Unsubscribe is
// called. The returned channel is closed on disconnect.
func (f *Feed) Subscribe(ctx context.Context) (<-chan Event, string) {
	sub := &subscription{
		id:     uuid.NewString(),
		out:    make(chan Event, f.buffer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		drain:  make(chan struct{}),
		exited: make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.out)
		return sub.out, sub.id
	}
	f.subscribers[sub.id] = sub
	f.mu.Unlock()

	go sub.pump()
	go func() {
		select {
		case <-ctx.Done():
			f.Unsubscribe(sub.id)
			sub.stop()
		case <-sub.exited:
		}
	}()

	f.logger.Debug("feed subscriber added", "subscriber_id", sub.id)
	return sub.out, sub.id
}

func (f *Feed) Unsubscribe(id string) {
	f.mu.Lock()
	sub, ok := f.subscribers[id]
	if ok {
		delete(f.subscribers, id)
	}
	f.mu.Unlock()

	if ok {
		sub.stop()
		f.logger.Debug("feed subscriber removed", "subscriber_id", id)
	}
}

// Publish stamps evt with the next sequence number and queues it for every
// subscriber. It returns the stamped event.
func (f *Feed) Publish(evt Event) Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return evt
	}

	f.seq++
	evt.Seq = f.seq
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	for id, sub := range f.subscribers {
		if !sub.enqueue(evt, f.backlog) {
			delete(f.subscribers, id)
			sub.stop()
			f.logger.Info("feed subscriber backlog overflow, disconnecting", "subscriber_id", id, "backlog", f.backlog)
		}
	}
	return evt
}

func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Close disconnects all subscribers once they have drained their pending
// events. Later publishes and subscriptions are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	subs := f.subscribers
	f.subscribers = make(map[string]*subscription)
	f.closed = true
	close(f.done)
	f.mu.Unlock()

	for _, sub := range subs {
		sub.finish()
	}
}

// Done is closed when the feed is closed.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (s *subscription) enqueue(evt Event, backlog int) bool {
	s.mu.Lock()
	if len(s.pending) >= backlog {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, evt)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// finish closes the subscription after the pending events are delivered.
// A later stop still cuts delivery short.
func (s *subscription) finish() {
	s.drainOnce.Do(func() { close(s.drain) })
}

func (s *subscription) pump() {
	defer close(s.exited)
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			case <-s.drain:
				return
			}
		}
		evt := s.pending[0]
		s.pending[0] = Event{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}
