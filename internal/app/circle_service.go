package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CreateCircleParams are the inputs of CreateCircle.
type CreateCircleParams struct {
	Name               string
	Emoji              string
	Description        string
	Categories         []circle.Category
	StartDate          time.Time
	ContributionAmount decimal.Decimal
	PayoutAmount       decimal.Decimal
	TotalPositions     int
	Cadence            circle.Cadence

	// CreatorID, when set, is placed in CreatorPosition (default 1) at creation.
	CreatorID       string
	CreatorPosition int
}

// CircleView is a circle as read by callers: stored data plus freshly derived fields.
type CircleView struct {
	*circle.Circle
	Status             circle.Status
	OpenPositionsCount int
}

// ChangeNotifier receives explicit notifications after successful mutations.
// Front-ends use it instead of observing shared state.
type ChangeNotifier interface {
	CircleCreated(ctx context.Context, c *circle.Circle)
	PositionJoined(ctx context.Context, circleID string, p *circle.Position)
}

// ScheduledPayment is one schedule item of a position owned by a member.
type ScheduledPayment struct {
	CircleID       string
	CircleName     string
	PositionNumber int
	Item           circle.PaymentScheduleItem
}

// CircleService is the public face of the engine. It holds no global state;
// every dependency is injected.
type CircleService struct {
	registry  circle.Registry
	allocator *PositionAllocator
	members   member.Directory
	clock     Clock
	notifier  ChangeNotifier
	logger    *logrus.Entry
	newID     func() string
}

func NewCircleService(
	registry circle.Registry,
	allocator *PositionAllocator,
	members member.Directory,
	clock Clock,
	notifier ChangeNotifier, // may be nil
	logger *logrus.Entry,
) *CircleService {
	return &CircleService{
		registry:  registry,
		allocator: allocator,
		members:   members,
		clock:     clock,
		notifier:  notifier,
		logger:    logger.WithField("component", "circle_service"),
		newID:     func() string { return uuid.New().String() },
	}
}

// CreateCircle builds N positions, generates each schedule once and stores the
// circle. Nothing is stored if any step fails.
func (s *CircleService) CreateCircle(ctx context.Context, params CreateCircleParams) (*CircleView, error) {
	if err := validateCreateParams(params); err != nil {
		s.logger.WithError(err).Warn("Rejected circle parameters")
		return nil, err
	}
	if params.CreatorID != "" {
		if _, err := s.members.GetByID(ctx, params.CreatorID); err != nil {
			return nil, fmt.Errorf("failed to resolve circle creator: %w", err)
		}
	}

	now := s.clock.Now()
	c := &circle.Circle{
		ID:                 s.newID(),
		Name:               strings.TrimSpace(params.Name),
		Emoji:              params.Emoji,
		Description:        params.Description,
		Categories:         append([]circle.Category(nil), params.Categories...),
		StartDate:          params.StartDate,
		Cadence:            params.Cadence,
		ContributionAmount: params.ContributionAmount,
		PayoutAmount:       params.PayoutAmount,
		TotalPositions:     params.TotalPositions,
		Positions:          make([]circle.Position, 0, params.TotalPositions),
		CreatedBy:          params.CreatorID,
		CreatedAt:          now,
	}

	for i := 0; i < params.TotalPositions; i++ {
		schedule, err := circle.GenerateSchedule(circle.ScheduleParams{
			StartDate:          c.StartDate,
			Cadence:            c.Cadence,
			ContributionAmount: c.ContributionAmount,
			PayoutAmount:       c.PayoutAmount,
			PayoutStepIndex:    i,
			TotalSteps:         c.TotalPositions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate schedule for position %d: %w", i+1, err)
		}
		c.Positions = append(c.Positions, circle.Position{
			CircleID:        c.ID,
			PositionNumber:  i + 1,
			PayoutDate:      circle.PayoutDate(c.StartDate, c.Cadence, i),
			PaymentSchedule: schedule,
		})
	}

	if params.CreatorID != "" {
		creatorPos := params.CreatorPosition
		if creatorPos == 0 {
			creatorPos = 1
		}
		c.Positions[creatorPos-1].OwnerID = params.CreatorID
		c.Positions[creatorPos-1].JoinedAt = now
	}

	if err := s.registry.Create(ctx, c); err != nil {
		s.logger.WithError(err).WithField("circle_id", c.ID).Error("Failed to store circle")
		return nil, fmt.Errorf("failed to store circle: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"circle_id":       c.ID,
		"total_positions": c.TotalPositions,
		"creator_id":      c.CreatedBy,
	}).Info("Circle created")

	if s.notifier != nil {
		s.notifier.CircleCreated(ctx, c.Clone())
	}
	return s.view(c, now), nil
}

func validateCreateParams(p CreateCircleParams) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("name is empty: %w", circle.ErrInvalidCircleParameters)
	case p.TotalPositions < 2:
		return fmt.Errorf("total positions %d, need at least 2: %w", p.TotalPositions, circle.ErrInvalidCircleParameters)
	case p.Cadence <= 0:
		return fmt.Errorf("cadence %d days: %w", int(p.Cadence), circle.ErrInvalidScheduleParameters)
	case p.ContributionAmount.IsNegative() || p.PayoutAmount.IsNegative():
		return fmt.Errorf("negative amount: %w", circle.ErrInvalidScheduleParameters)
	case !isCents(p.ContributionAmount) || !isCents(p.PayoutAmount):
		return fmt.Errorf("amounts are limited to cents: %w", circle.ErrInvalidScheduleParameters)
	case p.StartDate.IsZero():
		return fmt.Errorf("start date is not set: %w", circle.ErrInvalidCircleParameters)
	case p.CreatorID == "" && p.CreatorPosition != 0:
		return fmt.Errorf("creator position without creator: %w", circle.ErrInvalidCircleParameters)
	case p.CreatorPosition < 0 || p.CreatorPosition > p.TotalPositions:
		return fmt.Errorf("creator position %d: %w", p.CreatorPosition, circle.ErrInvalidPositionNumber)
	}
	return nil
}

// isCents reports whether d needs no more than two decimal places, which is
// what every registry stores.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// JoinPosition assigns memberID to the position and returns the filled position.
func (s *CircleService) JoinPosition(ctx context.Context, circleID string, positionNumber int, memberID string) (*circle.Position, error) {
	if _, err := s.members.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, member.ErrMemberNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve member %s: %w", memberID, err)
	}

	pos, err := s.allocator.Join(ctx, circleID, positionNumber, memberID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.PositionJoined(ctx, circleID, pos)
	}
	return pos, nil
}

// GetCircle returns the circle with status and open count derived at read time.
func (s *CircleService) GetCircle(ctx context.Context, circleID string) (*CircleView, error) {
	c, err := s.registry.GetCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	return s.view(c, s.clock.Now()), nil
}

// ListCircles returns circles matching filter, ordered by start date.
func (s *CircleService) ListCircles(ctx context.Context, filter circle.ListFilter) ([]*CircleView, error) {
	circles, err := s.registry.ListCircles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list circles: %w", err)
	}
	now := s.clock.Now()
	views := make([]*CircleView, 0, len(circles))
	for _, c := range circles {
		v := s.view(c, now)
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].StartDate.Before(views[j].StartDate)
	})
	return views, nil
}

// GetSchedule returns the payment schedule of one position.
func (s *CircleService) GetSchedule(ctx context.Context, circleID string, positionNumber int) ([]circle.PaymentScheduleItem, error) {
	p, err := s.registry.GetPosition(ctx, circleID, positionNumber)
	if err != nil {
		return nil, err
	}
	return p.PaymentSchedule, nil
}

// SuggestVacantPosition proposes another spot after a lost join.
func (s *CircleService) SuggestVacantPosition(ctx context.Context, circleID string) (int, error) {
	return s.allocator.SuggestVacantPosition(ctx, circleID)
}

// MemberSchedule lists every schedule item of the positions memberID owns,
// ordered by date. Items dated before from are skipped.
func (s *CircleService) MemberSchedule(ctx context.Context, memberID string, from time.Time) ([]ScheduledPayment, error) {
	circles, err := s.registry.ListCircles(ctx, circle.ListFilter{MemberID: memberID})
	if err != nil {
		return nil, fmt.Errorf("failed to list circles of member %s: %w", memberID, err)
	}
	var payments []ScheduledPayment
	for _, c := range circles {
		for _, p := range c.Positions {
			if p.OwnerID != memberID {
				continue
			}
			for _, item := range p.PaymentSchedule {
				if item.Date.Before(from) {
					continue
				}
				payments = append(payments, ScheduledPayment{
					CircleID:       c.ID,
					CircleName:     c.Name,
					PositionNumber: p.PositionNumber,
					Item:           item,
				})
			}
		}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Item.Date.Before(payments[j].Item.Date)
	})
	return payments, nil
}

// UpcomingPayments is MemberSchedule from the start of the current day.
func (s *CircleService) UpcomingPayments(ctx context.Context, memberID string) ([]ScheduledPayment, error) {
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.MemberSchedule(ctx, memberID, today)
}

func (s *CircleService) view(c *circle.Circle, now time.Time) *CircleView {
	return &CircleView{
		Circle:             c,
		Status:             c.StatusAt(now),
		OpenPositionsCount: c.OpenPositionsCount(),
	}
}
