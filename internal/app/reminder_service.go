package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"
	domainTelegram "tanda_circles/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// ReminderService tells members about contributions and payouts coming up soon.
// It only reads circles.
type ReminderService struct {
	registry       circle.Registry
	members        member.Directory
	telegramClient domainTelegram.Client
	clock          Clock
	lookahead      time.Duration
	logger         *logrus.Entry
}

func NewReminderService(
	registry circle.Registry,
	members member.Directory,
	tc domainTelegram.Client,
	clock Clock,
	lookahead time.Duration,
	logger *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		registry:       registry,
		members:        members,
		telegramClient: tc,
		clock:          clock,
		lookahead:      lookahead,
		logger:         logger.WithField("component", "reminders"),
	}
}

// SendUpcomingPaymentReminders sends one message per schedule item dated in
// [today, today+lookahead) for every filled position. It returns the number of
// messages sent. Delivery failures are logged and do not stop the run.
func (s *ReminderService) SendUpcomingPaymentReminders(ctx context.Context) (int, error) {
	now := s.clock.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	until := from.Add(s.lookahead)

	circles, err := s.registry.ListCircles(ctx, circle.ListFilter{})
	if err != nil {
		s.logger.WithError(err).Error("Failed to list circles for reminders")
		return 0, fmt.Errorf("failed to list circles: %w", err)
	}

	sent := 0
	for _, c := range circles {
		for _, p := range c.FilledPositions() {
			for _, item := range p.PaymentSchedule {
				if item.Date.Before(from) || !item.Date.Before(until) {
					continue
				}
				if err := s.remind(ctx, c, p, item); err != nil {
					s.logger.WithError(err).WithFields(logrus.Fields{
						"circle_id": c.ID,
						"position":  p.PositionNumber,
						"member_id": p.OwnerID,
					}).Warn("Reminder not delivered")
					continue
				}
				sent++
			}
		}
	}
	s.logger.WithField("sent", sent).Info("Upcoming payment reminders processed")
	return sent, nil
}

var errNotReachable = errors.New("member has no telegram id")

func (s *ReminderService) remind(ctx context.Context, c *circle.Circle, p circle.Position, item circle.PaymentScheduleItem) error {
	m, err := s.members.GetByID(ctx, p.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to resolve member: %w", err)
	}
	if m.TelegramID == 0 {
		return errNotReachable
	}
	return s.telegramClient.SendMessage(m.TelegramID, ReminderText(m.DisplayName, c, p.PositionNumber, item), &telebot.SendOptions{ParseMode: telebot.ModeDefault})
}

// ReminderText renders the message for a single upcoming schedule item.
func ReminderText(displayName string, c *circle.Circle, positionNumber int, item circle.PaymentScheduleItem) string {
	day := item.Date.Format("Monday, January 2")
	title := strings.TrimSpace(c.Emoji + " " + c.Name)
	if item.Kind == circle.KindPayout {
		return fmt.Sprintf("Hi %s! %s: you get paid $%s on %s (position %d).",
			displayName, title, item.Amount.StringFixed(2), day, positionNumber)
	}
	return fmt.Sprintf("Hi %s! %s: you pay $%s on %s (position %d).",
		displayName, title, item.Amount.StringFixed(2), day, positionNumber)
}
