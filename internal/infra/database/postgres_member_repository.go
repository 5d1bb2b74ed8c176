package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tanda_circles/internal/domain/member"
)

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

func (r *PostgresMemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `INSERT INTO members (id, display_name, avatar_url, telegram_id)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at`
	telegramID := sql.NullInt64{Int64: m.TelegramID, Valid: m.TelegramID != 0}

	err := r.db.QueryRowContext(ctx, query, m.ID, m.DisplayName, m.AvatarURL, telegramID).Scan(&m.CreatedAt)
	if err != nil {
		if isPQError(err, uniqueViolation) {
			return member.ErrDuplicateMember
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, id string) (*member.Member, error) {
	query := `SELECT id, display_name, avatar_url, telegram_id, created_at FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", id, member.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*member.Member, error) {
	query := `SELECT id, display_name, avatar_url, telegram_id, created_at FROM members WHERE telegram_id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("telegram id %d: %w", telegramID, member.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("error getting member by Telegram ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) ListAll(ctx context.Context) ([]*member.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, display_name, avatar_url, telegram_id, created_at FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func scanMember(row rowScanner) (*member.Member, error) {
	m := &member.Member{}
	var telegramID sql.NullInt64
	if err := row.Scan(&m.ID, &m.DisplayName, &m.AvatarURL, &telegramID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.TelegramID = telegramID.Int64
	return m, nil
}
