package kitchen

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/ticketstate"
	"github.com/google/uuid"
)

type TicketID = uuid.UUID
type LineItemID = uuid.UUID

// LineItem is one dish on a ticket. Items are immutable once attached; a
// change in quantity or preparation time means replacing the item.
type LineItem struct {
	ID                 LineItemID `bson:"id" json:"id"`
	Name               string     `bson:"name" json:"name"`
	Quantity           int        `bson:"quantity" json:"quantity"`
	PreparationMinutes float64    `bson:"preparation_minutes" json:"preparation_minutes"`
	Station            string     `bson:"station,omitempty" json:"station,omitempty"`
}

// Label identifies who a ticket is for: a table, a named customer, or takeout.
type Label struct {
	TableNumber  int    `bson:"table_number,omitempty" json:"table_number,omitempty"`
	CustomerName string `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
}

func (l Label) String() string {
	if l.TableNumber > 0 {
		return fmt.Sprintf("Table %d", l.TableNumber)
	}
	if name := strings.TrimSpace(l.CustomerName); name != "" {
		return name
	}
	return "Takeout"
}

type Ticket struct {
	ID          TicketID   `bson:"_id" json:"id"`
	Label       Label      `bson:"label" json:"label"`
	Items       []LineItem `bson:"items" json:"items"`
	State       string     `bson:"state" json:"state"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	// seq records insertion order so tickets created at the same instant
	// keep a stable position on the board.
	seq uint64
}

// RequiredMinutes is the preparation budget of the ticket: the slowest item
// gates the ticket because stations work in parallel.
func (t *Ticket) RequiredMinutes() float64 {
	var required float64
	for _, item := range t.Items {
		if item.PreparationMinutes > required {
			required = item.PreparationMinutes
		}
	}
	return required
}

// Validate checks the invariants an open ticket must hold.
func (t *Ticket) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil ticket", ErrInvalidTicket)
	}
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidTicket)
	}
	if len(t.Items) == 0 {
		return fmt.Errorf("%w: ticket %s has no items", ErrInvalidTicket, t.ID)
	}
	for i, item := range t.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d (%s) has quantity %d", ErrInvalidTicket, i, item.Name, item.Quantity)
		}
		if !validPreparation(item.PreparationMinutes) {
			return fmt.Errorf("%w: item %d (%s) has preparation time %v", ErrInvalidTicket, i, item.Name, item.PreparationMinutes)
		}
	}
	return nil
}

// validPreparation rejects zero, negative, NaN and infinite preparation
// times, none of which yield a usable elapsed fraction.
func validPreparation(minutes float64) bool {
	return minutes > 0 && !math.IsInf(minutes, 0)
}

// IsOpen reports whether the ticket is still in preparation.
func (t *Ticket) IsOpen() bool {
	return t.State == ticketstate.States.Open.Code()
}

func (t *Ticket) clone() Ticket {
	c := *t
	c.Items = append([]LineItem(nil), t.Items...)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.CancelledAt != nil {
		at := *t.CancelledAt
		c.CancelledAt = &at
	}
	return c
}
