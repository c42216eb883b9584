package kitchen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedDeliversInOrder(t *testing.T) {
	feed := NewFeed(1, 100, nil)
	defer feed.Close()

	events, _ := feed.Subscribe(context.Background())

	for i := 0; i < 20; i++ {
		feed.Publish(Event{Type: EventStatsUpdated})
	}

	for want := uint64(1); want <= 20; want++ {
		evt, ok := receive(events)
		require.True(t, ok, "event %d not received", want)
		assert.Equal(t, want, evt.Seq)
	}
}

func TestFeedFanOut(t *testing.T) {
	feed := NewFeed(4, 100, nil)
	defer feed.Close()

	first, _ := feed.Subscribe(context.Background())
	second, _ := feed.Subscribe(context.Background())
	assert.Equal(t, 2, feed.SubscriberCount())

	published := feed.Publish(Event{Type: EventTicketCreated})

	for _, ch := range []<-chan Event{first, second} {
		evt, ok := receive(ch)
		require.True(t, ok)
		assert.Equal(t, published.Seq, evt.Seq)
		assert.Equal(t, EventTicketCreated, evt.Type)
		assert.False(t, evt.OccurredAt.IsZero())
	}
}

func TestFeedUnsubscribeOnContextDone(t *testing.T) {
	feed := NewFeed(4, 100, nil)
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, _ := feed.Subscribe(ctx)
	cancel()

	for {
		_, ok := receive(events)
		if !ok {
			break
		}
	}
	assert.Eventually(t, func() bool { return feed.SubscriberCount() == 0 }, timeoutShort, tickShort)
}

func TestFeedOverflowDisconnects(t *testing.T) {
	feed := NewFeed(1, 2, nil)
	defer feed.Close()

	slow, _ := feed.Subscribe(context.Background())

	// nobody reads: one event sits in the channel, one in the pump and two
	// in the backlog before the subscriber is dropped
	for i := 0; i < 10; i++ {
		feed.Publish(Event{Type: EventStatsUpdated})
	}
	assert.Zero(t, feed.SubscriberCount())

	closed := false
	for i := 0; i < 10; i++ {
		if _, ok := receive(slow); !ok {
			closed = true
			break
		}
	}
	assert.True(t, closed, "slow subscriber should be disconnected")
}

func TestFeedClose(t *testing.T) {
	feed := NewFeed(4, 100, nil)
	events, _ := feed.Subscribe(context.Background())

	feed.Close()

	_, ok := receive(events)
	assert.False(t, ok)

	evt := feed.Publish(Event{Type: EventStatsUpdated})
	assert.Zero(t, evt.Seq)

	late, _ := feed.Subscribe(context.Background())
	_, ok = <-late
	assert.False(t, ok)
}

func TestFeedCloseDrainsPendingEvents(t *testing.T) {
	feed := NewFeed(1, 100, nil)
	events, _ := feed.Subscribe(context.Background())

	for i := 0; i < 5; i++ {
		feed.Publish(Event{Type: EventStatsUpdated})
	}
	feed.Close()

	select {
	case <-feed.Done():
	default:
		t.Fatal("done not closed")
	}

	var seqs []uint64
	for evt := range events {
		seqs = append(seqs, evt.Seq)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seqs)
}

func TestFeedCloseThenContextDoneClosesChannel(t *testing.T) {
	feed := NewFeed(1, 100, nil)
	ctx, cancel := context.WithCancel(context.Background())
	events, _ := feed.Subscribe(ctx)

	for i := 0; i < 5; i++ {
		feed.Publish(Event{Type: EventStatsUpdated})
	}
	feed.Close()
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, timeoutShort, tickShort)
}
