package circle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentKind tells whether a schedule item is paid into or out of the pool.
type PaymentKind string

const (
	KindContribution PaymentKind = "CONTRIBUTION"
	KindPayout       PaymentKind = "PAYOUT"
)

// PaymentScheduleItem is one cycle step of a position's timetable.
type PaymentScheduleItem struct {
	Date   time.Time
	Kind   PaymentKind
	Amount decimal.Decimal
}

// ScheduleParams are the inputs of GenerateSchedule.
type ScheduleParams struct {
	StartDate          time.Time
	Cadence            Cadence
	ContributionAmount decimal.Decimal
	PayoutAmount       decimal.Decimal
	PayoutStepIndex    int // zero-based, conventionally PositionNumber-1
	TotalSteps         int
}

// GenerateSchedule builds the full contribution/payout timetable of one position.
// The result depends only on p, so repeated calls yield identical schedules.
// Contribution*(TotalSteps-1) is expected to roughly match the payout but this
// is not checked here.
func GenerateSchedule(p ScheduleParams) ([]PaymentScheduleItem, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	items := make([]PaymentScheduleItem, 0, p.TotalSteps)
	for k := 0; k < p.TotalSteps; k++ {
		item := PaymentScheduleItem{
			Date:   p.Cadence.Step(p.StartDate, k),
			Kind:   KindContribution,
			Amount: p.ContributionAmount,
		}
		if k == p.PayoutStepIndex {
			item.Kind = KindPayout
			item.Amount = p.PayoutAmount
		}
		items = append(items, item)
	}
	return items, nil
}

// PayoutDate returns the date the position at payoutStepIndex is paid.
func PayoutDate(start time.Time, cadence Cadence, payoutStepIndex int) time.Time {
	return cadence.Step(start, payoutStepIndex)
}

func (p ScheduleParams) validate() error {
	switch {
	case p.TotalSteps <= 0:
		return fmt.Errorf("total steps %d: %w", p.TotalSteps, ErrInvalidScheduleParameters)
	case p.Cadence <= 0:
		return fmt.Errorf("cadence %d days: %w", int(p.Cadence), ErrInvalidScheduleParameters)
	case p.ContributionAmount.IsNegative():
		return fmt.Errorf("contribution amount %s: %w", p.ContributionAmount, ErrInvalidScheduleParameters)
	case p.PayoutAmount.IsNegative():
		return fmt.Errorf("payout amount %s: %w", p.PayoutAmount, ErrInvalidScheduleParameters)
	case p.PayoutStepIndex < 0 || p.PayoutStepIndex >= p.TotalSteps:
		return fmt.Errorf("payout step %d outside 0..%d: %w", p.PayoutStepIndex, p.TotalSteps-1, ErrInvalidScheduleParameters)
	}
	return nil
}
