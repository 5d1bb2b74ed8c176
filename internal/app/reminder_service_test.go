package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegramClient struct {
	sent   []sentMessage
	failTo int64
}

func (c *fakeTelegramClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	if chatID == c.failTo {
		return errors.New("blocked by user")
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func TestSendUpcomingPaymentReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.members.Create(ctx, &member.Member{ID: "alice", DisplayName: "Alice", TelegramID: 100}))
	require.NoError(t, f.members.Create(ctx, &member.Member{ID: "bob", DisplayName: "Bob", TelegramID: 200}))
	require.NoError(t, f.members.Create(ctx, &member.Member{ID: "carol", DisplayName: "Carol"}))

	view, err := f.service.CreateCircle(ctx, petsParams())
	require.NoError(t, err)
	for pos, id := range map[int]string{1: "alice", 3: "bob", 4: "carol"} {
		_, err := f.service.JoinPosition(ctx, view.ID, pos, id)
		require.NoError(t, err)
	}

	client := &fakeTelegramClient{}
	// 2024-05-14 is step 2: bob's payout, alice's and carol's contributions
	clock := ClockFunc(func() time.Time { return time.Date(2024, time.May, 13, 18, 30, 0, 0, time.UTC) })
	reminders := NewReminderService(f.registry, f.members, client, clock, 48*time.Hour, testLogger())

	sent, err := reminders.SendUpcomingPaymentReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "carol has no telegram id")
	require.Len(t, client.sent, 2)

	byChat := map[int64]string{}
	for _, m := range client.sent {
		byChat[m.chatID] = m.text
	}
	assert.Equal(t, "Hi Alice! 🐶 Pets and House Supplies: you pay $65.25 on Tuesday, May 14 (position 1).", byChat[100])
	assert.Equal(t, "Hi Bob! 🐶 Pets and House Supplies: you get paid $245.00 on Tuesday, May 14 (position 3).", byChat[200])
}

func TestSendUpcomingPaymentReminders_DeliveryFailureContinues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.members.Create(ctx, &member.Member{ID: "alice", DisplayName: "Alice", TelegramID: 100}))
	require.NoError(t, f.members.Create(ctx, &member.Member{ID: "bob", DisplayName: "Bob", TelegramID: 200}))
	view, err := f.service.CreateCircle(ctx, petsParams())
	require.NoError(t, err)
	_, err = f.service.JoinPosition(ctx, view.ID, 1, "alice")
	require.NoError(t, err)
	_, err = f.service.JoinPosition(ctx, view.ID, 2, "bob")
	require.NoError(t, err)

	client := &fakeTelegramClient{failTo: 100}
	clock := ClockFunc(func() time.Time { return time.Date(2024, time.April, 16, 8, 0, 0, 0, time.UTC) })
	sent, err := NewReminderService(f.registry, f.members, client, clock, 24*time.Hour, testLogger()).SendUpcomingPaymentReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, client.sent, 1)
	assert.Equal(t, int64(200), client.sent[0].chatID)
}

func TestReminderText_WithoutEmoji(t *testing.T) {
	c := &circle.Circle{Name: "Cat Funds"}
	item := circle.PaymentScheduleItem{
		Date:   time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC),
		Kind:   circle.KindContribution,
		Amount: decimal.RequireFromString("65.25"),
	}
	assert.Equal(t, "Hi Dan! Cat Funds: you pay $65.25 on Tuesday, June 11 (position 2).", ReminderText("Dan", c, 2, item))
}
