package event

import "time"

const (
	KitchenTicketsTopic = "kitchen.tickets"

	EventKitchenTicketCreated     = "kitchen.ticket.created"
	EventKitchenTicketCompleted   = "kitchen.ticket.completed"
	EventKitchenTicketCancelled   = "kitchen.ticket.cancelled"
	EventKitchenTicketTierChanged = "kitchen.ticket.tier_changed"
	EventKitchenTicketRejected    = "kitchen.ticket.rejected"
	EventKitchenStatsUpdated      = "kitchen.stats.updated"
)

type KitchenTicketEventMetadata struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TicketID   string    `json:"ticket_id"`
	Label      string    `json:"label,omitempty"`
}

type KitchenTicketCreatedEvent struct {
	KitchenTicketEventMetadata
	CreatedAt       time.Time `json:"created_at"`
	ItemCount       int       `json:"item_count"`
	RequiredMinutes float64   `json:"required_minutes"`
}

// KitchenTicketClosedEvent is emitted for completed and cancelled tickets.
type KitchenTicketClosedEvent struct {
	KitchenTicketEventMetadata
	State          string    `json:"state"`
	ClosedAt       time.Time `json:"closed_at"`
	ElapsedMinutes float64   `json:"elapsed_minutes"`
	Tier           string    `json:"tier,omitempty"`
	Delayed        bool      `json:"delayed"`
}

type KitchenTicketTierChangedEvent struct {
	KitchenTicketEventMetadata
	NewTier                   string  `json:"new_tier"`
	PreviousTier              string  `json:"previous_tier"`
	ElapsedFraction           float64 `json:"elapsed_fraction"`
	RemainingOrOverdueMinutes float64 `json:"remaining_or_overdue_minutes"`
}

// KitchenTicketRejectedEvent tells the order service that an order could not
// be queued in the kitchen.
type KitchenTicketRejectedEvent struct {
	KitchenTicketEventMetadata
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type KitchenStatsUpdatedEvent struct {
	EventType            string    `json:"event_type"`
	OccurredAt           time.Time `json:"occurred_at"`
	AveragePrepMinutes   float64   `json:"average_prep_minutes"`
	CompletedCount       int       `json:"completed_count"`
	OnTimeCount          int       `json:"on_time_count"`
	DelayedCount         int       `json:"delayed_count"`
	EstimatedWaitMinutes float64   `json:"estimated_wait_minutes"`
	OpenCount            int       `json:"open_count"`
}
