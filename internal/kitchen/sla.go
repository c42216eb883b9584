package kitchen

import (
	"fmt"
	"math"
	"time"

	"github.com/appetiteclub/kds/pkg/enums/severity"
)

// Thresholds are the elapsed fractions at which a ticket escalates.
type Thresholds struct {
	Attention float64 `json:"attention"`
	Overdue   float64 `json:"overdue"`
}

var DefaultThresholds = Thresholds{Attention: 0.70, Overdue: 1.00}

func (t Thresholds) Validate() error {
	if t.Attention <= 0 || t.Overdue <= 0 {
		return fmt.Errorf("thresholds must be positive: attention=%v overdue=%v", t.Attention, t.Overdue)
	}
	if t.Attention > t.Overdue {
		return fmt.Errorf("attention threshold %v exceeds overdue threshold %v", t.Attention, t.Overdue)
	}
	return nil
}

// Tier classifies an elapsed fraction.
func (t Thresholds) Tier(fraction float64) severity.Tier {
	switch {
	case fraction >= t.Overdue:
		return severity.Tiers.Overdue
	case fraction >= t.Attention:
		return severity.Tiers.Attention
	default:
		return severity.Tiers.OnTime
	}
}

// Evaluation is what is true about a ticket at one instant.
type Evaluation struct {
	ElapsedFraction float64       `json:"elapsed_fraction"`
	Tier            severity.Tier `json:"tier"`
	// RemainingOrOverdueMinutes is positive while time is left and negative
	// once the ticket is late.
	RemainingOrOverdueMinutes float64   `json:"remaining_or_overdue_minutes"`
	RequiredMinutes           float64   `json:"required_minutes"`
	ElapsedMinutes            float64   `json:"elapsed_minutes"`
	EvaluatedAt               time.Time `json:"evaluated_at"`
	ClockSkew                 bool      `json:"clock_skew,omitempty"`
}

// RemainingMinutes is the time left, zero once late.
func (e Evaluation) RemainingMinutes() float64 {
	return math.Max(e.RemainingOrOverdueMinutes, 0)
}

// OverdueMinutes is how late the ticket is, zero while time is left.
func (e Evaluation) OverdueMinutes() float64 {
	return math.Max(-e.RemainingOrOverdueMinutes, 0)
}

type Evaluator struct {
	thresholds Thresholds
}

func NewEvaluator(thresholds Thresholds) (Evaluator, error) {
	if err := thresholds.Validate(); err != nil {
		return Evaluator{}, err
	}
	return Evaluator{thresholds: thresholds}, nil
}

var defaultEvaluator = Evaluator{thresholds: DefaultThresholds}

// Evaluate uses the default thresholds.
func Evaluate(t *Ticket, now time.Time) (Evaluation, error) {
	return defaultEvaluator.Evaluate(t, now)
}

func (e Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate computes the elapsed fraction, tier and signed remaining time of
// t at now. Tiers compare the normalized fraction so tickets with different
// budgets escalate alike. When now precedes the creation time the elapsed
// time is clamped to zero and the evaluation is returned with ErrClockSkew.
func (e Evaluator) Evaluate(t *Ticket, now time.Time) (Evaluation, error) {
	if t == nil {
		return Evaluation{}, fmt.Errorf("%w: nil ticket", ErrInvalidTicket)
	}
	if len(t.Items) == 0 {
		return Evaluation{}, fmt.Errorf("%w: ticket %s has no items", ErrInvalidTicket, t.ID)
	}
	for _, item := range t.Items {
		if !validPreparation(item.PreparationMinutes) {
			return Evaluation{}, fmt.Errorf("%w: ticket %s has preparation time %v", ErrInvalidTicket, t.ID, item.PreparationMinutes)
		}
	}

	required := t.RequiredMinutes()
	elapsed := now.Sub(t.CreatedAt)
	skew := elapsed < 0
	if skew {
		elapsed = 0
	}

	elapsedMinutes := elapsed.Minutes()
	fraction := elapsedMinutes / required

	eval := Evaluation{
		ElapsedFraction:           fraction,
		Tier:                      e.thresholds.Tier(fraction),
		RemainingOrOverdueMinutes: required - elapsedMinutes,
		RequiredMinutes:           required,
		ElapsedMinutes:            elapsedMinutes,
		EvaluatedAt:               now,
		ClockSkew:                 skew,
	}

	if skew {
		return eval, fmt.Errorf("%w: ticket %s created at %s, evaluated at %s",
			ErrClockSkew, t.ID, t.CreatedAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return eval, nil
}
