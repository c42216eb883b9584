package kitchen

import "time"

// Clock supplies the current time. Production uses SystemClock; tests inject
// a manual clock.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickSource creates a Ticker firing every interval.
type TickSource func(interval time.Duration) Ticker

// NewTimeTicker is the TickSource backed by time.Ticker.
func NewTimeTicker(interval time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(interval)}
}

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// DayBoundary returns the start of the business day containing now.
type DayBoundary func(now time.Time) time.Time

// BusinessDayStart returns a DayBoundary for days starting at hour:minute in
// loc. A restaurant closing at 2am would use hour 4 so late tickets count
// towards the evening they belong to.
func BusinessDayStart(loc *time.Location, hour, minute int) DayBoundary {
	if loc == nil {
		loc = time.Local
	}
	return func(now time.Time) time.Time {
		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
		if local.Before(start) {
			prev := local.AddDate(0, 0, -1)
			start = time.Date(prev.Year(), prev.Month(), prev.Day(), hour, minute, 0, 0, loc)
		}
		return start
	}
}

// LocalMidnight is the default boundary: days roll over at local midnight.
var LocalMidnight = BusinessDayStart(time.Local, 0, 0)

// previousDayStart returns the start of the business day before the one
// containing now.
func previousDayStart(boundary DayBoundary, now time.Time) time.Time {
	return boundary(boundary(now).Add(-time.Nanosecond))
}
