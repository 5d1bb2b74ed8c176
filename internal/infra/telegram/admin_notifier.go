package telegram

import (
	"context"
	"fmt"

	"tanda_circles/internal/domain/circle"
	domainTelegram "tanda_circles/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// AdminNotifier forwards circle changes to the admin chat.
type AdminNotifier struct {
	client          domainTelegram.Client
	adminTelegramID int64
	logger          *logrus.Entry
}

func NewAdminNotifier(client domainTelegram.Client, adminTelegramID int64, logger *logrus.Entry) *AdminNotifier {
	return &AdminNotifier{
		client:          client,
		adminTelegramID: adminTelegramID,
		logger:          logger.WithField("component", "admin_notifier"),
	}
}

func (n *AdminNotifier) CircleCreated(_ context.Context, c *circle.Circle) {
	n.send(fmt.Sprintf("New circle %s (%s): %d positions, payout $%s, starts %s",
		title(c), c.ID, c.TotalPositions, c.PayoutAmount.StringFixed(2), c.StartDate.Format(dateLayout)))
}

func (n *AdminNotifier) PositionJoined(_ context.Context, circleID string, p *circle.Position) {
	n.send(fmt.Sprintf("Member %s joined circle %s at position %d (payout %s)",
		p.OwnerID, circleID, p.PositionNumber, p.PayoutDate.Format(dateLayout)))
}

func (n *AdminNotifier) send(text string) {
	if err := n.client.SendMessage(n.adminTelegramID, text, nil); err != nil {
		n.logger.WithError(err).Warn("Failed to notify admin")
	}
}
