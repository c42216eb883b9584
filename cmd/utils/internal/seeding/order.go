package seeding

import (
	"time"

	"github.com/appetiteclub/kds/internal/kitchen"
	"github.com/appetiteclub/kds/pkg/event"
	"github.com/google/uuid"
)

// DemoOrders turns the demo tickets into order.placed events, so a running
// service receives them exactly as it would from the order service. The
// event time carries the backdated creation time.
func DemoOrders(now time.Time) []event.OrderKitchenEvent {
	seeds := kitchen.DemoSeeds(now)
	orders := make([]event.OrderKitchenEvent, 0, len(seeds))

	for _, t := range seeds {
		order := event.OrderKitchenEvent{
			EventType:    event.EventOrderPlaced,
			OccurredAt:   t.CreatedAt,
			OrderID:      t.ID.String(),
			TableNumber:  t.Label.TableNumber,
			CustomerName: t.Label.CustomerName,
			Items:        make([]event.OrderItemEntry, 0, len(t.Items)),
		}
		for _, item := range t.Items {
			order.Items = append(order.Items, event.OrderItemEntry{
				OrderItemID:        uuid.NewString(),
				Name:               item.Name,
				Quantity:           item.Quantity,
				PreparationMinutes: item.PreparationMinutes,
				Station:            item.Station,
			})
		}
		orders = append(orders, order)
	}

	return orders
}
