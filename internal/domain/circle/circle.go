package circle

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category is a free-form tag describing what a circle saves for.
type Category string

const (
	CategoryPets       Category = "Pets"
	CategoryHouse      Category = "House"
	CategoryTravel     Category = "Travel"
	CategoryEducation  Category = "Education"
	CategoryFurniture  Category = "Furniture"
	CategoryLiveEvents Category = "Live Events"
	CategoryCat        Category = "Cat"
)

// Cadence is the number of calendar days between two cycle steps.
type Cadence int

// Step returns the date of cycle step k counted from start.
func (c Cadence) Step(start time.Time, k int) time.Time {
	return start.AddDate(0, 0, int(c)*k)
}

func (c Cadence) String() string {
	return fmt.Sprintf("%d days", int(c))
}

// Circle is a rotating savings group with a fixed number of positions.
// Corresponds to the 'circles' table.
type Circle struct {
	ID                 string
	Name               string
	Emoji              string
	Description        string
	Categories         []Category
	StartDate          time.Time
	Cadence            Cadence
	ContributionAmount decimal.Decimal
	PayoutAmount       decimal.Decimal
	TotalPositions     int
	Positions          []Position // ordered by PositionNumber, 1..TotalPositions
	CreatedBy          string
	CreatedAt          time.Time
}

// Position is one of the N slots of a circle.
// Corresponds to the 'circle_positions' table.
type Position struct {
	CircleID        string
	PositionNumber  int
	OwnerID         string // empty while vacant
	JoinedAt        time.Time
	PayoutDate      time.Time
	PaymentSchedule []PaymentScheduleItem
}

func (p Position) IsVacant() bool {
	return p.OwnerID == ""
}

// FilledPositionsCount counts positions with an owner.
func (c *Circle) FilledPositionsCount() int {
	n := 0
	for _, p := range c.Positions {
		if !p.IsVacant() {
			n++
		}
	}
	return n
}

// OpenPositionsCount is always derived from the position list, never stored.
func (c *Circle) OpenPositionsCount() int {
	return len(c.Positions) - c.FilledPositionsCount()
}

func (c *Circle) VacantPositions() []Position {
	out := make([]Position, 0, len(c.Positions))
	for _, p := range c.Positions {
		if p.IsVacant() {
			out = append(out, p)
		}
	}
	return out
}

func (c *Circle) FilledPositions() []Position {
	out := make([]Position, 0, len(c.Positions))
	for _, p := range c.Positions {
		if !p.IsVacant() {
			out = append(out, p)
		}
	}
	return out
}

// Position returns the position with the given number, or ErrPositionNotFound.
func (c *Circle) Position(number int) (*Position, error) {
	if number < 1 || number > len(c.Positions) {
		return nil, fmt.Errorf("position %d of circle %s: %w", number, c.ID, ErrPositionNotFound)
	}
	p := c.Positions[number-1]
	return &p, nil
}

// HasMember reports whether memberID owns any position in the circle.
func (c *Circle) HasMember(memberID string) bool {
	for _, p := range c.Positions {
		if p.OwnerID != "" && p.OwnerID == memberID {
			return true
		}
	}
	return false
}

// HasCategory reports whether the circle is tagged with cat.
func (c *Circle) HasCategory(cat Category) bool {
	for _, have := range c.Categories {
		if have == cat {
			return true
		}
	}
	return false
}

// Duration is the span covered by one full rotation.
func (c *Circle) Duration() time.Duration {
	return c.EndDate().Sub(c.StartDate)
}

// EndDate is the first date after the last cycle step.
func (c *Circle) EndDate() time.Time {
	return c.Cadence.Step(c.StartDate, c.TotalPositions)
}

// PoolShortfall returns contribution*(N-1) - payout. A positive value is what
// the pool collects beyond a single payout (an implicit fee); it is informational only.
func (c *Circle) PoolShortfall() decimal.Decimal {
	collected := c.ContributionAmount.Mul(decimal.NewFromInt(int64(c.TotalPositions - 1)))
	return collected.Sub(c.PayoutAmount)
}

// Clone returns a deep copy so callers can never mutate registry-held state.
func (c *Circle) Clone() *Circle {
	cp := *c
	cp.Categories = append([]Category(nil), c.Categories...)
	cp.Positions = make([]Position, len(c.Positions))
	for i, p := range c.Positions {
		p.PaymentSchedule = append([]PaymentScheduleItem(nil), p.PaymentSchedule...)
		cp.Positions[i] = p
	}
	return &cp
}

// Validate checks the structural invariants every circle must satisfy at rest:
// contiguous position numbers 1..N, N-item schedules with exactly one payout
// dated at the position's payout date, and no member owning two positions.
func (c *Circle) Validate() error {
	if c.TotalPositions < 2 {
		return fmt.Errorf("total positions %d: %w", c.TotalPositions, ErrInvalidCircleParameters)
	}
	if len(c.Positions) != c.TotalPositions {
		return fmt.Errorf("circle has %d positions, want %d: %w", len(c.Positions), c.TotalPositions, ErrInvalidCircleParameters)
	}
	owners := make(map[string]int, len(c.Positions))
	for i, p := range c.Positions {
		if p.PositionNumber != i+1 {
			return fmt.Errorf("position at index %d is numbered %d: %w", i, p.PositionNumber, ErrInvalidCircleParameters)
		}
		if len(p.PaymentSchedule) != c.TotalPositions {
			return fmt.Errorf("position %d schedule has %d items, want %d: %w", p.PositionNumber, len(p.PaymentSchedule), c.TotalPositions, ErrInvalidScheduleParameters)
		}
		payouts := 0
		for k, item := range p.PaymentSchedule {
			if !item.Date.Equal(c.Cadence.Step(c.StartDate, k)) {
				return fmt.Errorf("position %d step %d dated %s: %w", p.PositionNumber, k, item.Date.Format("2006-01-02"), ErrInvalidScheduleParameters)
			}
			if item.Kind == KindPayout {
				payouts++
				if !item.Date.Equal(p.PayoutDate) {
					return fmt.Errorf("position %d payout dated %s, want %s: %w", p.PositionNumber, item.Date.Format("2006-01-02"), p.PayoutDate.Format("2006-01-02"), ErrInvalidScheduleParameters)
				}
			}
		}
		if payouts != 1 {
			return fmt.Errorf("position %d has %d payouts: %w", p.PositionNumber, payouts, ErrInvalidScheduleParameters)
		}
		if p.OwnerID != "" {
			if other, dup := owners[p.OwnerID]; dup {
				return fmt.Errorf("member %s owns positions %d and %d: %w", p.OwnerID, other, p.PositionNumber, ErrInvalidCircleParameters)
			}
			owners[p.OwnerID] = p.PositionNumber
		}
	}
	return nil
}
