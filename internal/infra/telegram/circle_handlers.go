package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tanda_circles/internal/app"
	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// CircleAPI is the part of app.CircleService the bot talks to.
type CircleAPI interface {
	CreateCircle(ctx context.Context, params app.CreateCircleParams) (*app.CircleView, error)
	JoinPosition(ctx context.Context, circleID string, positionNumber int, memberID string) (*circle.Position, error)
	GetCircle(ctx context.Context, circleID string) (*app.CircleView, error)
	ListCircles(ctx context.Context, filter circle.ListFilter) ([]*app.CircleView, error)
	GetSchedule(ctx context.Context, circleID string, positionNumber int) ([]circle.PaymentScheduleItem, error)
	SuggestVacantPosition(ctx context.Context, circleID string) (int, error)
	UpcomingPayments(ctx context.Context, memberID string) ([]app.ScheduledPayment, error)
}

// RegisterCircleHandlers wires the member-facing circle commands.
func RegisterCircleHandlers(ctx context.Context, b *telebot.Bot, circles CircleAPI, members member.Directory, baseLogger *logrus.Entry) {
	handlerLogger := baseLogger.WithField("handler_group", "circles")

	b.Handle("/circles", func(c telebot.Context) error {
		filter := circle.ListFilter{OnlyOpen: true}
		if args := c.Args(); len(args) > 0 {
			filter.Category = circle.Category(strings.Join(args, " "))
		}
		views, err := circles.ListCircles(ctx, filter)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to list circles")
			return c.Send("Could not load circles, please try again later.")
		}
		return c.Send(FormatCircleList(views))
	})

	b.Handle("/circle", func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /circle <circle_id>")
		}
		view, err := circles.GetCircle(ctx, args[0])
		if err != nil {
			if errors.Is(err, circle.ErrCircleNotFound) {
				return c.Send("That circle no longer exists.")
			}
			handlerLogger.WithError(err).Error("Failed to get circle")
			return c.Send("Could not load the circle, please try again later.")
		}
		return c.Send(FormatCircle(view))
	})

	b.Handle("/schedule", func(c telebot.Context) error {
		circleID, pos, err := parseCirclePosition(c.Args())
		if err != nil {
			return c.Send("Usage: /schedule <circle_id> <position>")
		}
		items, err := circles.GetSchedule(ctx, circleID, pos)
		if err != nil {
			return c.Send(JoinErrorMessage(err, 0))
		}
		return c.Send(FormatSchedule(pos, items))
	})

	b.Handle("/join", func(c telebot.Context) error {
		logCtx := handlerLogger.WithFields(logrus.Fields{"command": "/join", "sender_id": c.Sender().ID})
		circleID, pos, err := parseCirclePosition(c.Args())
		if err != nil {
			return c.Send("Usage: /join <circle_id> <position>")
		}
		m, err := members.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			return c.Send(JoinErrorMessage(err, 0))
		}

		p, err := circles.JoinPosition(ctx, circleID, pos, m.ID)
		if err != nil {
			suggestion := 0
			if errors.Is(err, circle.ErrPositionAlreadyFilled) {
				suggestion, _ = circles.SuggestVacantPosition(ctx, circleID)
			}
			logCtx.WithError(err).Info("Join rejected")
			return c.Send(JoinErrorMessage(err, suggestion))
		}
		return c.Send(fmt.Sprintf("You joined position %d. Your payout date is %s.\n\n%s",
			p.PositionNumber, p.PayoutDate.Format(dateLayout), FormatSchedule(p.PositionNumber, p.PaymentSchedule)))
	})

	b.Handle("/my", func(c telebot.Context) error {
		m, err := members.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			return c.Send(JoinErrorMessage(err, 0))
		}
		payments, err := circles.UpcomingPayments(ctx, m.ID)
		if err != nil {
			handlerLogger.WithError(err).Error("Failed to load member schedule")
			return c.Send("Could not load your payments, please try again later.")
		}
		if len(payments) == 0 {
			return c.Send("You have no upcoming payments. Join your first circle with /circles.")
		}
		var b strings.Builder
		for _, p := range payments {
			verb := "pay"
			if p.Item.Kind == circle.KindPayout {
				verb = "get paid"
			}
			fmt.Fprintf(&b, "%s: %s %s $%s (position %d)\n", p.Item.Date.Format("Mon, Jan 2"), p.CircleName, verb, p.Item.Amount.StringFixed(2), p.PositionNumber)
		}
		return c.Send(strings.TrimRight(b.String(), "\n"))
	})
}

// RegisterAdminHandlers wires member and circle creation for the configured admin.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, circles CircleAPI, members member.Repository, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/add_member", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/add_member",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not allowed to run this command.")
		}

		m, err := ParseAddMemberArgs(c.Args())
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid command format")
			return c.Send("Usage: /add_member <telegram_id> <display name...>")
		}
		if err := members.Create(ctx, m); err != nil {
			if errors.Is(err, member.ErrDuplicateMember) {
				return c.Send(fmt.Sprintf("Member %s is already registered.", m.ID))
			}
			handlerLogger.WithError(err).Error("Failed to add member")
			return c.Send("Could not add member, please try again later.")
		}
		handlerLogger.WithField("member_id", m.ID).Info("Member added by admin")
		return c.Send(fmt.Sprintf("Member %s (%s) added.", m.DisplayName, m.ID))
	})

	b.Handle("/members", func(c telebot.Context) error {
		if c.Sender().ID != adminTelegramID {
			baseLogger.WithFields(logrus.Fields{"handler": "/members", "sender_id": c.Sender().ID}).Warn("Unauthorized access attempt")
			return c.Send("You are not allowed to run this command.")
		}
		all, err := members.ListAll(ctx)
		if err != nil {
			baseLogger.WithError(err).WithField("handler", "/members").Error("Failed to list members")
			return c.Send("Could not load members, please try again later.")
		}
		return c.Send(FormatMemberList(all))
	})

	b.Handle("/create_circle", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/create_circle",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("You are not allowed to run this command.")
		}

		params, err := ParseCreateCircleArgs(c.Args())
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid command format")
			return c.Send("Usage: /create_circle <positions> <cadence_days> <YYYY-MM-DD> <contribution> <payout> <name...>\n" + err.Error())
		}
		view, err := circles.CreateCircle(ctx, params)
		if err != nil {
			handlerLogger.WithError(err).Warn("Failed to create circle")
			return c.Send(fmt.Sprintf("Could not create circle: %s", err.Error()))
		}
		handlerLogger.WithField("circle_id", view.ID).Info("Circle created via bot")
		return c.Send(fmt.Sprintf("Circle created: %s\n\n%s", view.ID, FormatCircle(view)))
	})
}

// ParseCreateCircleArgs parses
// <positions> <cadence_days> <YYYY-MM-DD> <contribution> <payout> <name...>.
func ParseCreateCircleArgs(args []string) (app.CreateCircleParams, error) {
	var p app.CreateCircleParams
	if len(args) < 6 {
		return p, fmt.Errorf("expected at least 6 arguments, got %d", len(args))
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return p, fmt.Errorf("positions must be a number: %w", err)
	}
	cadence, err := strconv.Atoi(args[1])
	if err != nil {
		return p, fmt.Errorf("cadence must be a number of days: %w", err)
	}
	startDate, err := time.ParseInLocation("2006-01-02", args[2], time.Local)
	if err != nil {
		return p, fmt.Errorf("start date must be YYYY-MM-DD: %w", err)
	}
	contribution, err := decimal.NewFromString(args[3])
	if err != nil {
		return p, fmt.Errorf("invalid contribution amount: %w", err)
	}
	payout, err := decimal.NewFromString(args[4])
	if err != nil {
		return p, fmt.Errorf("invalid payout amount: %w", err)
	}

	p.TotalPositions = n
	p.Cadence = circle.Cadence(cadence)
	p.StartDate = startDate
	p.ContributionAmount = contribution
	p.PayoutAmount = payout
	p.Name = strings.Join(args[5:], " ")
	return p, nil
}

// ParseAddMemberArgs parses <telegram_id> <display name...>.
func ParseAddMemberArgs(args []string) (*member.Member, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("expected at least 2 arguments, got %d", len(args))
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || telegramID <= 0 {
		return nil, fmt.Errorf("invalid telegram id %q", args[0])
	}
	return &member.Member{
		ID:          MemberIDForTelegram(telegramID),
		DisplayName: strings.Join(args[1:], " "),
		TelegramID:  telegramID,
	}, nil
}

func parseCirclePosition(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("expected 2 arguments, got %d", len(args))
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("position must be a number: %w", err)
	}
	return args[0], pos, nil
}
