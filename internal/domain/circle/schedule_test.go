package circle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleParams(payoutIndex int) ScheduleParams {
	return ScheduleParams{
		StartDate:          date(2024, time.April, 16),
		Cadence:            14,
		ContributionAmount: decimal.RequireFromString("65.25"),
		PayoutAmount:       decimal.RequireFromString("245.00"),
		PayoutStepIndex:    payoutIndex,
		TotalSteps:         5,
	}
}

func TestGenerateSchedule_PositionThree(t *testing.T) {
	items, err := GenerateSchedule(sampleParams(2))
	require.NoError(t, err)
	require.Len(t, items, 5)

	want := []struct {
		date   time.Time
		kind   PaymentKind
		amount string
	}{
		{date(2024, time.April, 16), KindContribution, "65.25"},
		{date(2024, time.April, 30), KindContribution, "65.25"},
		{date(2024, time.May, 14), KindPayout, "245"},
		{date(2024, time.May, 28), KindContribution, "65.25"},
		{date(2024, time.June, 11), KindContribution, "65.25"},
	}
	for i, w := range want {
		assert.True(t, w.date.Equal(items[i].Date), "step %d date: got %s", i, items[i].Date)
		assert.Equal(t, w.kind, items[i].Kind, "step %d kind", i)
		assert.True(t, decimal.RequireFromString(w.amount).Equal(items[i].Amount), "step %d amount: got %s", i, items[i].Amount)
	}
}

func TestGenerateSchedule_Deterministic(t *testing.T) {
	first, err := GenerateSchedule(sampleParams(3))
	require.NoError(t, err)
	second, err := GenerateSchedule(sampleParams(3))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSchedule_Shape(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for idx := 0; idx < n; idx++ {
			p := sampleParams(idx)
			p.TotalSteps = n
			items, err := GenerateSchedule(p)
			require.NoError(t, err)
			require.Len(t, items, n)

			payouts := 0
			for k, item := range items {
				assert.True(t, item.Date.Equal(p.StartDate.AddDate(0, 0, 14*k)))
				if item.Kind == KindPayout {
					payouts++
					assert.True(t, item.Date.Equal(PayoutDate(p.StartDate, p.Cadence, idx)))
				}
			}
			assert.Equal(t, 1, payouts, "n=%d idx=%d", n, idx)
		}
	}
}

func TestGenerateSchedule_AcrossDSTKeepsCalendarDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	p := sampleParams(0)
	p.StartDate = time.Date(2024, time.March, 1, 9, 0, 0, 0, loc)
	items, err := GenerateSchedule(p)
	require.NoError(t, err)
	for _, item := range items {
		assert.Equal(t, 9, item.Date.Hour())
	}
}

func TestGenerateSchedule_InvalidParameters(t *testing.T) {
	cases := map[string]func(p *ScheduleParams){
		"zero steps":            func(p *ScheduleParams) { p.TotalSteps = 0 },
		"negative steps":        func(p *ScheduleParams) { p.TotalSteps = -3 },
		"zero cadence":          func(p *ScheduleParams) { p.Cadence = 0 },
		"negative contribution": func(p *ScheduleParams) { p.ContributionAmount = decimal.NewFromInt(-1) },
		"negative payout":       func(p *ScheduleParams) { p.PayoutAmount = decimal.NewFromInt(-1) },
		"payout index too big":  func(p *ScheduleParams) { p.PayoutStepIndex = 5 },
		"payout index negative": func(p *ScheduleParams) { p.PayoutStepIndex = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := sampleParams(0)
			mutate(&p)
			_, err := GenerateSchedule(p)
			assert.ErrorIs(t, err, ErrInvalidScheduleParameters)
		})
	}
}

func TestGenerateSchedule_UnbalancedPoolIsNotAnError(t *testing.T) {
	p := sampleParams(1)
	p.PayoutAmount = decimal.NewFromInt(10000)
	_, err := GenerateSchedule(p)
	assert.NoError(t, err)
}
