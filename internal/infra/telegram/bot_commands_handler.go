package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tanda_circles/internal/domain/member"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// MemberIDForTelegram is the member id assigned to a Telegram user on /start.
func MemberIDForTelegram(telegramID int64) string {
	return fmt.Sprintf("tg-%d", telegramID)
}

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	members member.Repository,
	baseLogger *logrus.Entry,
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		sender := c.Sender()
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", sender.ID)

		existing, err := members.GetByTelegramID(ctx, sender.ID)
		if err == nil {
			return c.Send(fmt.Sprintf("Welcome back, %s! Browse open circles with /circles.", existing.DisplayName))
		}
		if !errors.Is(err, member.ErrMemberNotFound) {
			logCtx.WithError(err).Error("Error checking member for /start command")
			return c.Send("Something went wrong, please try again later.")
		}

		name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
		if name == "" {
			name = sender.Username
		}
		m := &member.Member{ID: MemberIDForTelegram(sender.ID), DisplayName: name, TelegramID: sender.ID}
		if err := members.Create(ctx, m); err != nil && !errors.Is(err, member.ErrDuplicateMember) {
			logCtx.WithError(err).Error("Failed to register member")
			return c.Send("Something went wrong, please try again later.")
		}
		logCtx.WithField("member_id", m.ID).Info("Member registered")
		return c.Send(fmt.Sprintf("Hi %s! You can now join savings circles. Browse open circles with /circles.", name))
	})

	b.Handle("/help", func(c telebot.Context) error {
		var helpText strings.Builder
		helpText.WriteString("/circles [category] - open circles\n")
		helpText.WriteString("/circle <id> - circle details\n")
		helpText.WriteString("/join <id> <position> - take a vacant position\n")
		helpText.WriteString("/schedule <id> <position> - contribution and payout dates\n")
		helpText.WriteString("/my - your upcoming payments")
		if c.Sender().ID == adminTelegramID {
			helpText.WriteString("\n/add_member <telegram_id> <display name...>")
			helpText.WriteString("\n/members")
			helpText.WriteString("\n/create_circle <positions> <cadence_days> <YYYY-MM-DD> <contribution> <payout> <name...>")
		}
		return c.Send(helpText.String())
	})
}
