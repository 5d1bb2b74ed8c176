package telegram

import "gopkg.in/telebot.v3"

// Client sends plain messages to member chats. Reminders and admin notices
// go through it so app code never holds a *telebot.Bot.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}
