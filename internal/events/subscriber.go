package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/appetiteclub/kds/internal/logger"
	"github.com/appetiteclub/kds/pkg/event"
	"github.com/google/uuid"
)

// ErrIntakeStopped is returned for orders delivered after Stop. A durable
// consumer redelivers them once the service is back.
var ErrIntakeStopped = errors.New("order intake stopped")

// OrderSubscriber turns order service events into ticket operations. The
// order id is the ticket id, so a redelivered order.placed is a no-op.
type OrderSubscriber struct {
	subscriber event.Subscriber
	service    kitchen.TicketService
	publisher  event.Publisher
	clock      kitchen.Clock
	logger     logger.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewOrderSubscriber(
	subscriber event.Subscriber,
	service kitchen.TicketService,
	publisher event.Publisher,
	log logger.Logger,
) *OrderSubscriber {
	if log == nil {
		log = logger.NewNoop()
	}
	return &OrderSubscriber{
		subscriber: subscriber,
		service:    service,
		publisher:  publisher,
		clock:      kitchen.SystemClock,
		logger:     log.With("component", "order_subscriber"),
	}
}

func (s *OrderSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting OrderSubscriber", "topic", event.OrdersKitchenTopic)

	if err := s.subscriber.Subscribe(ctx, event.OrdersKitchenTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.OrdersKitchenTopic, err)
	}

	s.logger.Info("OrderSubscriber started successfully")
	return nil
}

// Stop rejects further deliveries and waits for in-flight ones, so no order
// changes the queue once it returns.
func (s *OrderSubscriber) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.logger.Info("OrderSubscriber stopped")
	return nil
}

func (s *OrderSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrIntakeStopped
	}

	var evt event.OrderKitchenEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal event: %v", err)
		return nil
	}

	orderID, err := uuid.Parse(evt.OrderID)
	if err != nil {
		s.logger.Errorf("Invalid order_id %q: %v", evt.OrderID, err)
		return nil
	}

	switch evt.EventType {
	case event.EventOrderPlaced:
		return s.handlePlaced(ctx, orderID, &evt)
	case event.EventOrderServed:
		return s.handleClosed(orderID, evt.EventType, s.service.MarkServed)
	case event.EventOrderCancelled:
		return s.handleClosed(orderID, evt.EventType, s.service.CancelOrder)
	default:
		s.logger.Infof("Unknown event type: %s", evt.EventType)
	}

	return nil
}

func (s *OrderSubscriber) handlePlaced(ctx context.Context, orderID uuid.UUID, evt *event.OrderKitchenEvent) error {
	ticket := kitchen.Ticket{
		ID: orderID,
		Label: kitchen.Label{
			TableNumber:  evt.TableNumber,
			CustomerName: evt.CustomerName,
		},
		CreatedAt: evt.OccurredAt,
		Items:     make([]kitchen.LineItem, 0, len(evt.Items)),
	}
	for _, entry := range evt.Items {
		item := kitchen.LineItem{
			Name:               entry.Name,
			Quantity:           entry.Quantity,
			PreparationMinutes: entry.PreparationMinutes,
			Station:            entry.Station,
		}
		if id, err := uuid.Parse(entry.OrderItemID); err == nil {
			item.ID = id
		}
		ticket.Items = append(ticket.Items, item)
	}

	_, err := s.service.Add(ticket)
	switch {
	case err == nil:
		s.logger.Infof("Created ticket for order %s", orderID)
		return nil
	case errors.Is(err, kitchen.ErrDuplicateID):
		s.logger.Debug("ignoring redelivered order", "order_id", orderID)
		return nil
	case errors.Is(err, kitchen.ErrQueueFull), errors.Is(err, kitchen.ErrInvalidTicket):
		s.logger.Info("order rejected by kitchen", "order_id", orderID, "reason", err.Error())
		s.publishRejected(ctx, orderID, ticket.Label, err)
		return nil
	default:
		return err
	}
}

func (s *OrderSubscriber) handleClosed(orderID uuid.UUID, eventType string, close func(kitchen.TicketID) (kitchen.Ticket, error)) error {
	if _, err := close(orderID); err != nil {
		if errors.Is(err, kitchen.ErrNotFound) {
			s.logger.Debug("no open ticket for order", "order_id", orderID, "event_type", eventType)
			return nil
		}
		return err
	}
	return nil
}

func (s *OrderSubscriber) publishRejected(ctx context.Context, orderID uuid.UUID, label kitchen.Label, reason error) {
	if s.publisher == nil {
		return
	}

	payload := event.KitchenTicketRejectedEvent{
		KitchenTicketEventMetadata: event.KitchenTicketEventMetadata{
			EventType:  event.EventKitchenTicketRejected,
			OccurredAt: s.clock.Now().UTC(),
			TicketID:   orderID.String(),
			Label:      label.String(),
		},
		OrderID: orderID.String(),
		Reason:  reason.Error(),
	}

	data, _ := json.Marshal(payload)
	if err := s.publisher.Publish(ctx, event.KitchenTicketsTopic, data); err != nil {
		s.logger.Errorf("Failed to publish ticket.rejected event: %v", err)
	}
}
