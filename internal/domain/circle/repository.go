package circle

import (
	"context"
	"time"
)

// ListFilter narrows ListCircles. Zero values match everything.
type ListFilter struct {
	Category Category
	MemberID string // only circles where this member owns a position
	OnlyOpen bool   // only circles with at least one vacant position
	Status   Status // applied by the service, status is time-derived
}

// Matches applies the stored-data part of the filter (everything but Status).
func (f ListFilter) Matches(c *Circle) bool {
	if f.Category != "" && !c.HasCategory(f.Category) {
		return false
	}
	if f.MemberID != "" && !c.HasMember(f.MemberID) {
		return false
	}
	if f.OnlyOpen && c.OpenPositionsCount() == 0 {
		return false
	}
	return true
}

// Registry is the authoritative store of circles and their positions.
// All ownership writes go through CompareAndSetOwner, which must be atomic per
// (circleID, positionNumber) and must not block writes to other positions.
type Registry interface {
	Create(ctx context.Context, c *Circle) error
	GetCircle(ctx context.Context, id string) (*Circle, error)
	ListCircles(ctx context.Context, filter ListFilter) ([]*Circle, error)
	GetPosition(ctx context.Context, circleID string, positionNumber int) (*Position, error)

	// CompareAndSetOwner sets the owner of a vacant position. It fails with
	// ErrPositionAlreadyFilled if the position has an owner, and with
	// ErrMemberAlreadyInCircle if memberID already owns another position.
	CompareAndSetOwner(ctx context.Context, circleID string, positionNumber int, memberID string, joinedAt time.Time) (*Position, error)
}
