package kitchen

import (
	"context"
	"time"
)

// ArchivedTicket is a terminal ticket with the metrics frozen when it closed.
type ArchivedTicket struct {
	Ticket          `bson:",inline"`
	ClosedAt        time.Time `bson:"closed_at" json:"closed_at"`
	RequiredMinutes float64   `bson:"required_minutes" json:"required_minutes"`
	ElapsedMinutes  float64   `bson:"elapsed_minutes" json:"elapsed_minutes"`
	Tier            string    `bson:"tier" json:"tier"`
	Delayed         bool      `bson:"delayed" json:"delayed"`
}

type ArchiveFilter struct {
	From   *time.Time
	To     *time.Time
	State  string
	Limit  int
	Offset int
}

// TicketArchive stores closed tickets for history queries. It is a
// collaborator: the engine never reads from it.
type TicketArchive interface {
	Save(ctx context.Context, t *ArchivedTicket) error
	List(ctx context.Context, filter ArchiveFilter) ([]ArchivedTicket, error)
}

func newArchivedTicket(t Ticket, rec CompletionRecord) *ArchivedTicket {
	return &ArchivedTicket{
		Ticket:          t,
		ClosedAt:        rec.ClosedAt,
		RequiredMinutes: rec.RequiredMinutes,
		ElapsedMinutes:  rec.ElapsedMinutes,
		Tier:            rec.Tier.Code(),
		Delayed:         rec.Delayed,
	}
}
