package app

import (
	"context"
	"errors"
	"fmt"

	"tanda_circles/internal/domain/circle"

	"github.com/sirupsen/logrus"
)

// PositionAllocator is the only component that assigns position owners.
// A join either succeeds once or fails immediately; it never retries and never undoes.
type PositionAllocator struct {
	registry circle.Registry
	clock    Clock
	logger   *logrus.Entry
}

func NewPositionAllocator(registry circle.Registry, clock Clock, logger *logrus.Entry) *PositionAllocator {
	return &PositionAllocator{
		registry: registry,
		clock:    clock,
		logger:   logger.WithField("component", "allocator"),
	}
}

// Join binds memberID to a vacant position. Under contention on the same
// position exactly one caller wins; the others get circle.ErrPositionAlreadyFilled.
func (a *PositionAllocator) Join(ctx context.Context, circleID string, positionNumber int, memberID string) (*circle.Position, error) {
	log := a.logger.WithFields(logrus.Fields{
		"circle_id": circleID,
		"position":  positionNumber,
		"member_id": memberID,
	})
	if memberID == "" {
		return nil, fmt.Errorf("empty member id: %w", circle.ErrInvalidCircleParameters)
	}

	pos, err := a.registry.CompareAndSetOwner(ctx, circleID, positionNumber, memberID, a.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, circle.ErrPositionAlreadyFilled), errors.Is(err, circle.ErrMemberAlreadyInCircle):
			log.WithError(err).Info("Join lost")
		case errors.Is(err, circle.ErrCircleNotFound), errors.Is(err, circle.ErrPositionNotFound):
			log.WithError(err).Warn("Join target does not exist")
		default:
			log.WithError(err).Error("Join failed")
			return nil, fmt.Errorf("failed to set owner of position %d in circle %s: %w", positionNumber, circleID, err)
		}
		return nil, err
	}

	log.Info("Position joined")
	return pos, nil
}

// SuggestVacantPosition returns the lowest vacant position number, or
// circle.ErrPositionAlreadyFilled when the circle is full. It does not reserve anything.
func (a *PositionAllocator) SuggestVacantPosition(ctx context.Context, circleID string) (int, error) {
	c, err := a.registry.GetCircle(ctx, circleID)
	if err != nil {
		return 0, err
	}
	vacant := c.VacantPositions()
	if len(vacant) == 0 {
		return 0, fmt.Errorf("circle %s is full: %w", circleID, circle.ErrPositionAlreadyFilled)
	}
	return vacant[0].PositionNumber, nil
}
