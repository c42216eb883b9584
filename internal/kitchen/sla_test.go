package kitchen

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/severity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTierBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		elapsed       time.Duration
		wantTier      severity.Tier
		wantRemaining float64
	}{
		{name: "justCreated", elapsed: 0, wantTier: severity.Tiers.OnTime, wantRemaining: 10},
		{name: "sixMinutes", elapsed: 6 * time.Minute, wantTier: severity.Tiers.OnTime, wantRemaining: 4},
		{name: "sevenMinutesIsAttention", elapsed: 7 * time.Minute, wantTier: severity.Tiers.Attention, wantRemaining: 3},
		{name: "tenMinutesIsOverdue", elapsed: 10 * time.Minute, wantTier: severity.Tiers.Overdue, wantRemaining: 0},
		{name: "twelveMinutes", elapsed: 12 * time.Minute, wantTier: severity.Tiers.Overdue, wantRemaining: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := newTicket(baseTime, 10)

			eval, err := Evaluate(&ticket, baseTime.Add(tt.elapsed))

			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, eval.Tier)
			assert.InDelta(t, tt.wantRemaining, eval.RemainingOrOverdueMinutes, 1e-9)
			assert.InDelta(t, 10.0, eval.RequiredMinutes, 1e-9)
		})
	}
}

func TestEvaluateUsesSlowestItem(t *testing.T) {
	ticket := newTicket(baseTime, 15, 8)

	eval, err := Evaluate(&ticket, baseTime.Add(12*time.Minute))

	require.NoError(t, err)
	assert.InDelta(t, 15.0, eval.RequiredMinutes, 1e-9)
	assert.InDelta(t, 0.8, eval.ElapsedFraction, 1e-9)
	assert.Equal(t, severity.Tiers.Attention, eval.Tier)
	assert.InDelta(t, 3.0, eval.RemainingMinutes(), 1e-9)
	assert.Zero(t, eval.OverdueMinutes())
}

func TestEvaluateOverdueMinutes(t *testing.T) {
	ticket := newTicket(baseTime, 20, 5)

	eval, err := Evaluate(&ticket, baseTime.Add(23*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, severity.Tiers.Overdue, eval.Tier)
	assert.InDelta(t, 3.0, eval.OverdueMinutes(), 1e-9)
	assert.Zero(t, eval.RemainingMinutes())
	assert.True(t, eval.Tier.Delayed())
}

func TestEvaluateClockSkew(t *testing.T) {
	ticket := newTicket(baseTime, 10)

	eval, err := Evaluate(&ticket, baseTime.Add(-2*time.Minute))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClockSkew))
	assert.True(t, eval.ClockSkew)
	assert.Zero(t, eval.ElapsedMinutes)
	assert.Zero(t, eval.ElapsedFraction)
	assert.Equal(t, severity.Tiers.OnTime, eval.Tier)
	assert.InDelta(t, 10.0, eval.RemainingOrOverdueMinutes, 1e-9)
}

func TestEvaluateInvalidTicket(t *testing.T) {
	tests := []struct {
		name   string
		ticket *Ticket
	}{
		{name: "nilTicket", ticket: nil},
		{name: "noItems", ticket: &Ticket{CreatedAt: baseTime}},
		{name: "zeroPrepTime", ticket: func() *Ticket { tk := newTicket(baseTime, 0); return &tk }()},
		{name: "negativePrepTime", ticket: func() *Ticket { tk := newTicket(baseTime, 10, -1); return &tk }()},
		{name: "nanPrepTime", ticket: func() *Ticket { tk := newTicket(baseTime, math.NaN()); return &tk }()},
		{name: "nanBesideValidPrepTime", ticket: func() *Ticket { tk := newTicket(baseTime, 10, math.NaN()); return &tk }()},
		{name: "infinitePrepTime", ticket: func() *Ticket { tk := newTicket(baseTime, math.Inf(1)); return &tk }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.ticket, baseTime)
			assert.ErrorIs(t, err, ErrInvalidTicket)
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		wantErr    bool
	}{
		{name: "defaults", thresholds: DefaultThresholds},
		{name: "equal", thresholds: Thresholds{Attention: 0.9, Overdue: 0.9}},
		{name: "inverted", thresholds: Thresholds{Attention: 1.2, Overdue: 1.0}, wantErr: true},
		{name: "zeroAttention", thresholds: Thresholds{Attention: 0, Overdue: 1.0}, wantErr: true},
		{name: "negativeOverdue", thresholds: Thresholds{Attention: 0.5, Overdue: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvaluator(tt.thresholds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEvaluatorCustomThresholds(t *testing.T) {
	evaluator, err := NewEvaluator(Thresholds{Attention: 0.5, Overdue: 0.8})
	require.NoError(t, err)
	ticket := newTicket(baseTime, 10)

	eval, err := evaluator.Evaluate(&ticket, baseTime.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, severity.Tiers.Attention, eval.Tier)

	eval, err = evaluator.Evaluate(&ticket, baseTime.Add(8*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, severity.Tiers.Overdue, eval.Tier)
}
