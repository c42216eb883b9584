package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/event"
)

const publishTimeout = 5 * time.Second

// FeedRelay republishes the engine change feed on the kitchen.tickets topic
// so other services can follow the board without a direct connection.
type FeedRelay struct {
	service   kitchen.TicketService
	publisher event.Publisher
	logger    logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewFeedRelay(service kitchen.TicketService, publisher event.Publisher, log logger.Logger) *FeedRelay {
	if log == nil {
		log = logger.NewNoop()
	}
	return &FeedRelay{
		service:   service,
		publisher: publisher,
		logger:    log.With("component", "feed_relay"),
	}
}

func (r *FeedRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	events, subscriberID := r.service.Subscribe(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		r.run(ctx, events)
		r.logger.Info("feed relay stopped", "subscriber_id", subscriberID)
	}()

	r.logger.Info("feed relay started", "topic", event.KitchenTicketsTopic)
	return nil
}

func (r *FeedRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}

	// A closed feed still holds events for the relay; publish them first.
	select {
	case <-r.service.Done():
		select {
		case <-done:
		case <-ctx.Done():
		}
	default:
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run relays until ctx is done or the feed shuts down. A relay that falls
// behind is disconnected by the feed; it resubscribes and logs the gap.
func (r *FeedRelay) run(ctx context.Context, events <-chan kitchen.Event) {
	var lastSeq uint64
	resubscribed := false
	for {
		for evt := range events {
			if resubscribed && lastSeq > 0 && evt.Seq > lastSeq+1 {
				r.logger.Error("feed relay missed events", "missed", evt.Seq-lastSeq-1)
			}
			resubscribed = false
			lastSeq = evt.Seq
			r.relay(ctx, evt)
		}

		select {
		case <-ctx.Done():
			return
		case <-r.service.Done():
			return
		default:
		}

		r.logger.Info("feed relay disconnected, resubscribing", "last_seq", lastSeq)
		events, _ = r.service.Subscribe(ctx)
		resubscribed = true
	}
}

func (r *FeedRelay) relay(ctx context.Context, evt kitchen.Event) {
	payload, ok := Translate(evt)
	if !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Errorf("Failed to encode %s event: %v", evt.Type, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, event.KitchenTicketsTopic, data); err != nil {
		r.logger.Errorf("Failed to publish %s event: %v", evt.Type, err)
	}
}

// Translate maps a feed event to its message bus payload. Events without a
// bus counterpart report false.
func Translate(evt kitchen.Event) (interface{}, bool) {
	switch evt.Type {
	case kitchen.EventTicketCreated:
		if evt.Ticket == nil {
			return nil, false
		}
		return event.KitchenTicketCreatedEvent{
			KitchenTicketEventMetadata: metadata(event.EventKitchenTicketCreated, evt),
			CreatedAt:                  evt.Ticket.CreatedAt,
			ItemCount:                  len(evt.Ticket.Items),
			RequiredMinutes:            evt.Ticket.RequiredMinutes(),
		}, true

	case kitchen.EventTicketCompleted, kitchen.EventTicketCancelled:
		if evt.Ticket == nil || evt.Record == nil {
			return nil, false
		}
		eventType := event.EventKitchenTicketCompleted
		if evt.Type == kitchen.EventTicketCancelled {
			eventType = event.EventKitchenTicketCancelled
		}
		closed := event.KitchenTicketClosedEvent{
			KitchenTicketEventMetadata: metadata(eventType, evt),
			State:                      evt.Record.State,
			ClosedAt:                   evt.Record.ClosedAt,
			ElapsedMinutes:             evt.Record.ElapsedMinutes,
			Delayed:                    evt.Record.Delayed,
		}
		if evt.Record.Completed() {
			closed.Tier = evt.Record.Tier.Code()
		}
		return closed, true

	case kitchen.EventTierChanged:
		if evt.Ticket == nil || evt.Evaluation == nil {
			return nil, false
		}
		changed := event.KitchenTicketTierChangedEvent{
			KitchenTicketEventMetadata: metadata(event.EventKitchenTicketTierChanged, evt),
			NewTier:                    evt.Evaluation.Tier.Code(),
			ElapsedFraction:            evt.Evaluation.ElapsedFraction,
			RemainingOrOverdueMinutes:  evt.Evaluation.RemainingOrOverdueMinutes,
		}
		if evt.PreviousTier != nil {
			changed.PreviousTier = evt.PreviousTier.Code()
		}
		return changed, true

	case kitchen.EventStatsUpdated:
		if evt.Stats == nil {
			return nil, false
		}
		return event.KitchenStatsUpdatedEvent{
			EventType:            event.EventKitchenStatsUpdated,
			OccurredAt:           evt.OccurredAt,
			AveragePrepMinutes:   evt.Stats.AveragePrepMinutes,
			CompletedCount:       evt.Stats.CompletedCount,
			OnTimeCount:          evt.Stats.OnTimeCount,
			DelayedCount:         evt.Stats.DelayedCount,
			EstimatedWaitMinutes: evt.Stats.EstimatedWaitMinutes,
			OpenCount:            evt.Stats.OpenCount,
		}, true
	}
	return nil, false
}

func metadata(eventType string, evt kitchen.Event) event.KitchenTicketEventMetadata {
	return event.KitchenTicketEventMetadata{
		EventType:  eventType,
		OccurredAt: evt.OccurredAt,
		TicketID:   evt.Ticket.ID.String(),
		Label:      evt.Ticket.Label.String(),
	}
}
