package member

import (
	"context"
)

// Directory resolves member identities. The circle engine only reads from it.
type Directory interface {
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
}

// Repository is the writable side used by administration front-ends.
type Repository interface {
	Directory
	Create(ctx context.Context, m *Member) error
	ListAll(ctx context.Context) ([]*Member, error)
}
