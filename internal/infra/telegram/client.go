package telegram

import (
	"errors"
	"fmt"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter delivers reminders and admin notices through gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage writes text to a member's private chat. Link previews are off
// unless options say otherwise.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}

	if _, err := tba.bot.Send(&telebot.User{ID: recipientChatID}, text, options); err != nil {
		if errors.Is(err, telebot.ErrBlockedByUser) {
			return fmt.Errorf("chat %d blocked the bot: %w", recipientChatID, err)
		}
		return fmt.Errorf("failed to send message to chat %d: %w", recipientChatID, err)
	}
	return nil
}
