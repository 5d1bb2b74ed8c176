package member

import (
	"database/sql"
	"errors"
	"time"
)

var ErrMemberNotFound = errors.New("member not found")
var ErrDuplicateMember = errors.New("member with this id already exists")

// Member is a person that can own circle positions.
// Circles reference members by ID and never own them.
type Member struct {
	ID          string
	DisplayName string
	AvatarURL   sql.NullString
	TelegramID  int64 // 0 when the member is not reachable through Telegram
	CreatedAt   time.Time
}
