package circle

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCircle(t *testing.T, n int, owners map[int]string) *Circle {
	t.Helper()
	c := &Circle{
		ID:                 "c1",
		Name:               "Pets and House Supplies",
		Categories:         []Category{CategoryPets, CategoryHouse},
		StartDate:          date(2024, time.April, 16),
		Cadence:            14,
		ContributionAmount: decimal.RequireFromString("65.25"),
		PayoutAmount:       decimal.RequireFromString("245.00"),
		TotalPositions:     n,
	}
	for i := 0; i < n; i++ {
		p := sampleParams(i)
		p.TotalSteps = n
		items, err := GenerateSchedule(p)
		require.NoError(t, err)
		c.Positions = append(c.Positions, Position{
			CircleID:        c.ID,
			PositionNumber:  i + 1,
			OwnerID:         owners[i+1],
			PayoutDate:      PayoutDate(c.StartDate, c.Cadence, i),
			PaymentSchedule: items,
		})
	}
	return c
}

func TestCircle_DerivedCounts(t *testing.T) {
	c := buildCircle(t, 5, map[int]string{1: "ana", 2: "ben", 4: "cid"})

	assert.Equal(t, 3, c.FilledPositionsCount())
	assert.Equal(t, 2, c.OpenPositionsCount())
	assert.Equal(t, c.TotalPositions, c.FilledPositionsCount()+c.OpenPositionsCount())

	vacant := c.VacantPositions()
	require.Len(t, vacant, 2)
	assert.Equal(t, 3, vacant[0].PositionNumber)
	assert.Equal(t, 5, vacant[1].PositionNumber)
	assert.Len(t, c.FilledPositions(), 3)
	assert.True(t, c.HasMember("ben"))
	assert.False(t, c.HasMember("zoe"))
	assert.False(t, c.HasMember(""))
}

func TestCircle_Position(t *testing.T) {
	c := buildCircle(t, 5, nil)

	p, err := c.Position(3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.PositionNumber)

	for _, n := range []int{0, 6, -1} {
		_, err := c.Position(n)
		assert.ErrorIs(t, err, ErrPositionNotFound)
		assert.ErrorIs(t, err, ErrInvalidPositionNumber)
	}
}

func TestCircle_DurationAndShortfall(t *testing.T) {
	c := buildCircle(t, 5, nil)

	assert.Equal(t, 70*24*time.Hour, c.Duration())
	assert.True(t, c.EndDate().Equal(date(2024, time.June, 25)))
	// 4 * 65.25 = 261, payout 245
	assert.True(t, decimal.NewFromInt(16).Equal(c.PoolShortfall()), "got %s", c.PoolShortfall())
}

func TestCircle_CloneIsIndependent(t *testing.T) {
	c := buildCircle(t, 3, nil)
	cp := c.Clone()
	cp.Positions[0].OwnerID = "mallory"
	cp.Positions[1].PaymentSchedule[0].Kind = KindPayout
	cp.Categories[0] = CategoryTravel

	assert.True(t, c.Positions[0].IsVacant())
	assert.Equal(t, KindContribution, c.Positions[1].PaymentSchedule[0].Kind)
	assert.Equal(t, CategoryPets, c.Categories[0])
}

func TestCircle_Validate(t *testing.T) {
	require.NoError(t, buildCircle(t, 5, map[int]string{1: "ana"}).Validate())

	c := buildCircle(t, 5, nil)
	c.Positions[2].PositionNumber = 2
	assert.ErrorIs(t, c.Validate(), ErrInvalidCircleParameters)

	c = buildCircle(t, 5, nil)
	c.Positions = c.Positions[:4]
	assert.ErrorIs(t, c.Validate(), ErrInvalidCircleParameters)

	c = buildCircle(t, 5, map[int]string{1: "ana", 3: "ana"})
	assert.ErrorIs(t, c.Validate(), ErrInvalidCircleParameters)

	c = buildCircle(t, 5, nil)
	c.Positions[0].PaymentSchedule[1].Kind = KindPayout
	assert.ErrorIs(t, c.Validate(), ErrInvalidScheduleParameters)

	c = buildCircle(t, 5, nil)
	c.Positions[4].PayoutDate = c.StartDate
	assert.ErrorIs(t, c.Validate(), ErrInvalidScheduleParameters)
}

func TestListFilter_Matches(t *testing.T) {
	c := buildCircle(t, 3, map[int]string{1: "ana"})

	assert.True(t, ListFilter{}.Matches(c))
	assert.True(t, ListFilter{Category: CategoryPets}.Matches(c))
	assert.False(t, ListFilter{Category: CategoryTravel}.Matches(c))
	assert.True(t, ListFilter{MemberID: "ana"}.Matches(c))
	assert.False(t, ListFilter{MemberID: "ben"}.Matches(c))
	assert.True(t, ListFilter{OnlyOpen: true}.Matches(c))

	full := buildCircle(t, 2, map[int]string{1: "ana", 2: "ben"})
	assert.False(t, ListFilter{OnlyOpen: true}.Matches(full))
}

func TestErrPositionNotFound_IsNotOtherKinds(t *testing.T) {
	assert.False(t, errors.Is(ErrPositionNotFound, ErrPositionAlreadyFilled))
	assert.False(t, errors.Is(ErrPositionNotFound, ErrCircleNotFound))
	assert.False(t, errors.Is(ErrPositionAlreadyFilled, ErrPositionNotFound))
}
