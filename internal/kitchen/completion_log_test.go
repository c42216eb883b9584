package kitchen

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func record(closedAt time.Time) CompletionRecord {
	return CompletionRecord{TicketID: uuid.New(), State: "completed", ClosedAt: closedAt}
}

func TestCompletionLogAppendEvictsOldest(t *testing.T) {
	log := NewCompletionLog(3)
	var ids []TicketID
	for i := 0; i < 5; i++ {
		rec := record(baseTime.Add(time.Duration(i) * time.Minute))
		ids = append(ids, rec.TicketID)
		log.Append(rec)
	}

	records := log.Records()
	assert.Equal(t, 3, log.Len())
	assert.Equal(t, ids[2], records[0].TicketID)
	assert.Equal(t, ids[4], records[2].TicketID)
}

func TestCompletionLogPruneBefore(t *testing.T) {
	log := NewCompletionLog(10)
	log.Append(record(baseTime.Add(-2 * time.Hour)))
	log.Append(record(baseTime.Add(-time.Hour)))
	log.Append(record(baseTime))
	log.Append(record(baseTime.Add(time.Hour)))

	removed := log.PruneBefore(baseTime)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, log.Len())
	for _, rec := range log.Records() {
		assert.False(t, rec.ClosedAt.Before(baseTime))
	}
}

func TestCompletionLogRecordsIsCopy(t *testing.T) {
	log := NewCompletionLog(10)
	log.Append(record(baseTime))

	records := log.Records()
	records[0].Label = "changed"

	assert.Empty(t, log.Records()[0].Label)
}

func TestCompletionLogDefaultCapacity(t *testing.T) {
	log := NewCompletionLog(0)
	for i := 0; i < DefaultLogCapacity+10; i++ {
		log.Append(record(baseTime))
	}
	assert.Equal(t, DefaultLogCapacity, log.Len())
}
