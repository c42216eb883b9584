package kitchen

import "time"

const DefaultWaitPerTicketMinutes = 5.0

// DayTotals summarizes the completed tickets of one business day.
type DayTotals struct {
	DayStart              time.Time `json:"day_start"`
	AveragePrepMinutes    float64   `json:"average_prep_minutes"`
	AverageElapsedMinutes float64   `json:"average_elapsed_minutes"`
	CompletedCount        int       `json:"completed_count"`
	OnTimeCount           int       `json:"on_time_count"`
	DelayedCount          int       `json:"delayed_count"`
}

// StatsSnapshot is derived on every query from the queue and completion log;
// nothing in it is kept as a running counter.
type StatsSnapshot struct {
	DayTotals
	EstimatedWaitMinutes float64    `json:"estimated_wait_minutes"`
	OpenCount            int        `json:"open_count"`
	PreviousDay          *DayTotals `json:"previous_day,omitempty"`
	ComputedAt           time.Time  `json:"computed_at"`
}

// Equivalent reports whether two snapshots carry the same figures,
// ignoring when they were computed.
func (s StatsSnapshot) Equivalent(other StatsSnapshot) bool {
	if s.DayTotals != other.DayTotals ||
		s.EstimatedWaitMinutes != other.EstimatedWaitMinutes ||
		s.OpenCount != other.OpenCount {
		return false
	}
	if s.PreviousDay == nil || other.PreviousDay == nil {
		return s.PreviousDay == nil && other.PreviousDay == nil
	}
	return *s.PreviousDay == *other.PreviousDay
}

type StatsAggregator struct {
	boundary DayBoundary
	// fallbackWait is the per-ticket wait used before any ticket has been
	// completed today.
	fallbackWait float64
}

func NewStatsAggregator(boundary DayBoundary, fallbackWaitMinutes float64) StatsAggregator {
	if boundary == nil {
		boundary = LocalMidnight
	}
	if fallbackWaitMinutes <= 0 {
		fallbackWaitMinutes = DefaultWaitPerTicketMinutes
	}
	return StatsAggregator{boundary: boundary, fallbackWait: fallbackWaitMinutes}
}

// Compute derives the stats at now from a queue snapshot.
//
// Today's completed records feed the averages and the on-time/delayed split
// (classified when each ticket closed). The estimated wait is the open count
// times today's average prep time, or the fallback before the first
// completion; an empty queue means no wait.
func (a StatsAggregator) Compute(snap Snapshot, now time.Time) StatsSnapshot {
	dayStart := a.boundary(now)
	prevStart := previousDayStart(a.boundary, now)

	var today, previous []CompletionRecord
	for _, rec := range snap.Records {
		if !rec.Completed() {
			continue
		}
		switch {
		case !rec.ClosedAt.Before(dayStart):
			today = append(today, rec)
		case !rec.ClosedAt.Before(prevStart):
			previous = append(previous, rec)
		}
	}

	stats := StatsSnapshot{
		DayTotals:  totals(dayStart, today),
		OpenCount:  len(snap.Open),
		ComputedAt: now,
	}

	if len(previous) > 0 {
		prev := totals(prevStart, previous)
		stats.PreviousDay = &prev
	}

	if stats.OpenCount > 0 {
		perTicket := a.fallbackWait
		if stats.CompletedCount > 0 {
			perTicket = stats.AveragePrepMinutes
		}
		stats.EstimatedWaitMinutes = float64(stats.OpenCount) * perTicket
	}

	return stats
}

func totals(dayStart time.Time, records []CompletionRecord) DayTotals {
	t := DayTotals{DayStart: dayStart}
	if len(records) == 0 {
		return t
	}

	var required, elapsed float64
	for _, rec := range records {
		required += rec.RequiredMinutes
		elapsed += rec.ElapsedMinutes
		if rec.Delayed {
			t.DelayedCount++
		} else {
			t.OnTimeCount++
		}
	}

	t.CompletedCount = len(records)
	t.AveragePrepMinutes = required / float64(len(records))
	t.AverageElapsedMinutes = elapsed / float64(len(records))
	return t
}
