package kitchen

import (
	"time"

	"github.com/appetiteclub/kds/pkg/enums/severity"
	"github.com/appetiteclub/kds/pkg/enums/ticketstate"
)

// CompletionRecord holds the final metrics of a terminal ticket. Tier and
// Delayed are frozen at the moment the ticket closed.
type CompletionRecord struct {
	TicketID        TicketID      `bson:"ticket_id" json:"ticket_id"`
	Label           string        `bson:"label" json:"label"`
	State           string        `bson:"state" json:"state"`
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	ClosedAt        time.Time     `bson:"closed_at" json:"closed_at"`
	RequiredMinutes float64       `bson:"required_minutes" json:"required_minutes"`
	ElapsedMinutes  float64       `bson:"elapsed_minutes" json:"elapsed_minutes"`
	Tier            severity.Tier `bson:"tier" json:"tier"`
	Delayed         bool          `bson:"delayed" json:"delayed"`
}

// Completed reports whether the record counts towards stats.
func (r CompletionRecord) Completed() bool {
	return r.State == ticketstate.States.Completed.Code()
}

func newCompletionRecord(t *Ticket, closedAt time.Time, eval Evaluation) CompletionRecord {
	return CompletionRecord{
		TicketID:        t.ID,
		Label:           t.Label.String(),
		State:           t.State,
		CreatedAt:       t.CreatedAt,
		ClosedAt:        closedAt,
		RequiredMinutes: eval.RequiredMinutes,
		ElapsedMinutes:  eval.ElapsedMinutes,
		Tier:            eval.Tier,
		Delayed:         eval.Tier.Delayed(),
	}
}

// CompletionLog is a bounded record of terminal tickets. It is not safe for
// concurrent use; the Queue guards it.
type CompletionLog struct {
	capacity int
	entries  []CompletionRecord
}

func NewCompletionLog(capacity int) *CompletionLog {
	if capacity <= 0 {
		capacity = 2000
	}
	return &CompletionLog{capacity: capacity}
}

// Append adds rec, evicting the oldest entries beyond capacity.
func (l *CompletionLog) Append(rec CompletionRecord) {
	l.entries = append(l.entries, rec)
	if over := len(l.entries) - l.capacity; over > 0 {
		kept := make([]CompletionRecord, l.capacity, l.capacity+l.capacity/4)
		copy(kept, l.entries[over:])
		l.entries = kept
	}
}

// PruneBefore drops records closed before cutoff and returns how many were
// removed.
func (l *CompletionLog) PruneBefore(cutoff time.Time) int {
	kept := l.entries[:0]
	for _, rec := range l.entries {
		if !rec.ClosedAt.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(l.entries) - len(kept)
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = CompletionRecord{}
	}
	l.entries = kept
	return removed
}

// Records returns a copy of the log in append order.
func (l *CompletionLog) Records() []CompletionRecord {
	return append([]CompletionRecord(nil), l.entries...)
}

func (l *CompletionLog) Len() int {
	return len(l.entries)
}
