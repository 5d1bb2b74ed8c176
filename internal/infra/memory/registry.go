// Package memory holds process-local implementations of the circle registry
// and member directory. They are used when no DATABASE_URL is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tanda_circles/internal/domain/circle"
)

type ownership struct {
	memberID string
	joinedAt time.Time
}

// slot carries the only mutable field of a position.
type slot struct {
	owner atomic.Pointer[ownership]
}

type entry struct {
	circle *circle.Circle // owners stripped; never mutated after Create
	slots  []slot
	// members maps memberID -> claimed position number for this circle.
	members sync.Map
}

// Registry is an in-memory circle.Registry.
// The RWMutex only guards the id -> entry index. Joins on a position touch that
// position's slot and a per-member claim, so they never wait on each other.
type Registry struct {
	mu      sync.RWMutex
	circles map[string]*entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{circles: make(map[string]*entry)}
}

func (r *Registry) Create(_ context.Context, c *circle.Circle) error {
	if err := c.Validate(); err != nil {
		return err
	}

	e := &entry{circle: c.Clone(), slots: make([]slot, len(c.Positions))}
	for i := range e.circle.Positions {
		p := &e.circle.Positions[i]
		if p.OwnerID != "" {
			e.slots[i].owner.Store(&ownership{memberID: p.OwnerID, joinedAt: p.JoinedAt})
			e.members.Store(p.OwnerID, p.PositionNumber)
		}
		p.OwnerID = ""
		p.JoinedAt = time.Time{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.circles[c.ID]; exists {
		return fmt.Errorf("circle %s already exists: %w", c.ID, circle.ErrInvalidCircleParameters)
	}
	r.circles[c.ID] = e
	r.order = append(r.order, c.ID)
	return nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.circles[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("circle %s: %w", id, circle.ErrCircleNotFound)
	}
	return e, nil
}

func (r *Registry) GetCircle(_ context.Context, id string) (*circle.Circle, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.snapshot(), nil
}

func (r *Registry) ListCircles(_ context.Context, filter circle.ListFilter) ([]*circle.Circle, error) {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.circles[id])
	}
	r.mu.RUnlock()

	circles := make([]*circle.Circle, 0, len(entries))
	for _, e := range entries {
		c := e.snapshot()
		if filter.Matches(c) {
			circles = append(circles, c)
		}
	}
	return circles, nil
}

func (r *Registry) GetPosition(_ context.Context, circleID string, positionNumber int) (*circle.Position, error) {
	e, err := r.lookup(circleID)
	if err != nil {
		return nil, err
	}
	if positionNumber < 1 || positionNumber > len(e.slots) {
		return nil, fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionNotFound)
	}
	return e.position(positionNumber - 1), nil
}

func (r *Registry) CompareAndSetOwner(_ context.Context, circleID string, positionNumber int, memberID string, joinedAt time.Time) (*circle.Position, error) {
	e, err := r.lookup(circleID)
	if err != nil {
		return nil, err
	}
	if positionNumber < 1 || positionNumber > len(e.slots) {
		return nil, fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionNotFound)
	}
	s := &e.slots[positionNumber-1]
	if s.owner.Load() != nil {
		return nil, fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionAlreadyFilled)
	}

	// Claim the member first: a filled owner can never be rolled back, a claim can.
	// While a claim is held, a concurrent join by the same member is rejected
	// even if this one goes on to lose the slot.
	if held, loaded := e.members.LoadOrStore(memberID, positionNumber); loaded {
		return nil, fmt.Errorf("member %s holds position %v of circle %s: %w", memberID, held, circleID, circle.ErrMemberAlreadyInCircle)
	}
	if !s.owner.CompareAndSwap(nil, &ownership{memberID: memberID, joinedAt: joinedAt}) {
		e.members.CompareAndDelete(memberID, positionNumber)
		return nil, fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionAlreadyFilled)
	}
	return e.position(positionNumber - 1), nil
}

func (e *entry) position(i int) *circle.Position {
	p := e.circle.Positions[i]
	p.PaymentSchedule = append([]circle.PaymentScheduleItem(nil), p.PaymentSchedule...)
	if o := e.slots[i].owner.Load(); o != nil {
		p.OwnerID = o.memberID
		p.JoinedAt = o.joinedAt
	}
	return &p
}

func (e *entry) snapshot() *circle.Circle {
	c := e.circle.Clone()
	for i := range c.Positions {
		if o := e.slots[i].owner.Load(); o != nil {
			c.Positions[i].OwnerID = o.memberID
			c.Positions[i].JoinedAt = o.joinedAt
		}
	}
	return c
}
