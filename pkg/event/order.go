package event

import "time"

const (
	OrdersKitchenTopic  = "orders.kitchen"
	EventOrderPlaced    = "order.placed"
	EventOrderServed    = "order.served"
	EventOrderCancelled = "order.cancelled"
)

// OrderKitchenEvent is published by the order service when an order that
// requires kitchen production changes. The kitchen uses OrderID as ticket id,
// so redelivered order.placed events are rejected as duplicates.
type OrderKitchenEvent struct {
	EventType    string           `json:"event_type"`
	OccurredAt   time.Time        `json:"occurred_at"`
	OrderID      string           `json:"order_id"`
	TableNumber  int              `json:"table_number,omitempty"`
	CustomerName string           `json:"customer_name,omitempty"`
	Items        []OrderItemEntry `json:"items,omitempty"`
}

type OrderItemEntry struct {
	OrderItemID        string  `json:"order_item_id"`
	Name               string  `json:"name"`
	Quantity           int     `json:"quantity"`
	PreparationMinutes float64 `json:"preparation_minutes"`
	Station            string  `json:"station,omitempty"`
}
