package telegram

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tanda_circles/internal/app"
	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"
)

const dateLayout = "Jan 2, 2006"

// FormatCircleList renders one line per circle.
func FormatCircleList(views []*app.CircleView) string {
	if len(views) == 0 {
		return "No circles found."
	}
	var b strings.Builder
	for _, v := range views {
		fmt.Fprintf(&b, "%s [%s] %s: %d/%d members, %d open, payout $%s, starts %s\n",
			title(v.Circle), v.Status.Label(), v.ID,
			v.FilledPositionsCount(), v.TotalPositions, v.OpenPositionsCount,
			v.PayoutAmount.StringFixed(2), v.StartDate.Format(dateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatCircle renders a circle with all of its positions.
func FormatCircle(v *app.CircleView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", title(v.Circle), v.Status.Label())
	if v.Description != "" {
		fmt.Fprintf(&b, "%s\n", v.Description)
	}
	if len(v.Categories) > 0 {
		cats := make([]string, len(v.Categories))
		for i, c := range v.Categories {
			cats[i] = string(c)
		}
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(cats, ", "))
	}
	fmt.Fprintf(&b, "Contribution $%s every %s, payout $%s\n",
		v.ContributionAmount.StringFixed(2), v.Cadence, v.PayoutAmount.StringFixed(2))
	fmt.Fprintf(&b, "Duration: %s, ends %s\n", durationLabel(v.Duration()), v.EndDate().Format(dateLayout))
	switch fee := v.PoolShortfall(); {
	case fee.IsPositive():
		fmt.Fprintf(&b, "Pool keeps $%s per payout\n", fee.StringFixed(2))
	case fee.IsNegative():
		fmt.Fprintf(&b, "Payout exceeds other members' contributions by $%s\n", fee.Neg().StringFixed(2))
	}
	fmt.Fprintf(&b, "Members: %d/%d, open positions: %d\n", v.FilledPositionsCount(), v.TotalPositions, v.OpenPositionsCount)
	for _, p := range v.Positions {
		owner := "vacant"
		if !p.IsVacant() {
			owner = "taken"
		}
		fmt.Fprintf(&b, "#%d payout %s: %s\n", p.PositionNumber, p.PayoutDate.Format(dateLayout), owner)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSchedule renders a position's timetable.
func FormatSchedule(positionNumber int, items []circle.PaymentScheduleItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Position %d schedule:\n", positionNumber)
	for _, item := range items {
		verb := "You pay"
		if item.Kind == circle.KindPayout {
			verb = "Get paid"
		}
		fmt.Fprintf(&b, "%s: %s $%s\n", item.Date.Format("Mon, Jan 2"), verb, item.Amount.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

// JoinErrorMessage tells a lost race apart from a missing circle or position.
func JoinErrorMessage(err error, suggestion int) string {
	switch {
	case errors.Is(err, circle.ErrPositionAlreadyFilled):
		if suggestion > 0 {
			return fmt.Sprintf("Someone just took that spot. Position %d is still open.", suggestion)
		}
		return "Someone just took that spot and the circle is now full."
	case errors.Is(err, circle.ErrMemberAlreadyInCircle):
		return "You already hold a position in this circle."
	case errors.Is(err, circle.ErrCircleNotFound):
		return "That circle no longer exists."
	case errors.Is(err, circle.ErrPositionNotFound):
		return "That position does not exist in this circle."
	case errors.Is(err, member.ErrMemberNotFound):
		return "You are not registered yet. Send /start first."
	default:
		return "Something went wrong, please try again later."
	}
}

// FormatMemberList renders one line per registered member.
func FormatMemberList(members []*member.Member) string {
	if len(members) == 0 {
		return "No members registered."
	}
	var b strings.Builder
	for _, m := range members {
		contact := "no telegram"
		if m.TelegramID != 0 {
			contact = fmt.Sprintf("telegram %d", m.TelegramID)
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", m.ID, m.DisplayName, contact)
	}
	return strings.TrimRight(b.String(), "\n")
}

// durationLabel counts whole weeks when it can, days otherwise.
func durationLabel(d time.Duration) string {
	days := int(math.Round(d.Hours() / 24))
	if days%7 == 0 {
		return fmt.Sprintf("%d weeks", days/7)
	}
	return fmt.Sprintf("%d days", days)
}

func title(c *circle.Circle) string {
	return strings.TrimSpace(c.Emoji + " " + c.Name)
}
