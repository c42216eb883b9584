package kitchen

import (
	"context"
	"testing"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/severity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDemoSeeds(t *testing.T) {
	clock := newManualClock(baseTime)
	engine := newTestEngine(clock, EngineOptions{})
	defer engine.Close()

	require.NoError(t, ApplyDemoSeeds(engine, clock.Now(), nil))

	views := engine.ListOpenTickets()
	require.Len(t, views, 3)

	// oldest first: table 3 (12m of 20m), table 5 (3m of 15m), takeaway pizza
	assert.Equal(t, "Table 3", views[0].Label)
	assert.InDelta(t, 0.6, views[0].Evaluation.ElapsedFraction, 1e-9)
	assert.Equal(t, "Table 5", views[1].Label)
	assert.InDelta(t, 15.0, views[1].Evaluation.RequiredMinutes, 1e-9)
	assert.Equal(t, "María Rodríguez", views[2].Label)
	assert.Equal(t, severity.Tiers.OnTime, views[2].Evaluation.Tier)
}

func TestSimulatorArrive(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	defer engine.Close()

	sim := NewSimulator(engine, SimulatorOptions{Chance: 1, Seed: 42}, nil)

	for i := 0; i < DefaultCapacity; i++ {
		require.True(t, sim.Arrive())
	}
	assert.False(t, sim.Arrive(), "full queue skips the arrival")

	for _, view := range engine.ListOpenTickets() {
		require.Len(t, view.Ticket.Items, 1)
		item := view.Ticket.Items[0]
		assert.GreaterOrEqual(t, view.Ticket.Label.TableNumber, 1)
		assert.LessOrEqual(t, view.Ticket.Label.TableNumber, 10)
		assert.GreaterOrEqual(t, item.Quantity, 1)
		assert.LessOrEqual(t, item.Quantity, 3)
		assert.GreaterOrEqual(t, item.PreparationMinutes, 5.0)
		assert.LessOrEqual(t, item.PreparationMinutes, 24.0)
	}
}

func TestSimulatorChance(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{Queue: QueueOptions{Capacity: 1000}})
	defer engine.Close()

	sim := NewSimulator(engine, SimulatorOptions{Chance: 0.3, Seed: 7}, nil)

	placed := 0
	for i := 0; i < 1000; i++ {
		if sim.Arrive() {
			placed++
		}
	}
	assert.InDelta(t, 300, placed, 60)
}

func TestSimulatorStartStop(t *testing.T) {
	engine := newTestEngine(newManualClock(baseTime), EngineOptions{})
	defer engine.Close()
	ticker := newFakeTicker()

	sim := NewSimulator(engine, SimulatorOptions{Chance: 1, Seed: 1, Ticks: ticker.source(), Interval: time.Second}, nil)
	require.NoError(t, sim.Start(context.Background()))

	ticker.ch <- baseTime
	assert.Eventually(t, func() bool { return engine.Queue().Count() == 1 }, timeoutShort, tickShort)

	sim.Stop()
	sim.Stop()

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker not stopped")
	}
}
