package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tanda_circles/internal/domain/member"
)

// MemberDirectory is an in-memory member.Repository.
type MemberDirectory struct {
	mu         sync.RWMutex
	byID       map[string]*member.Member
	byTelegram map[int64]string
}

func NewMemberDirectory(seed ...*member.Member) *MemberDirectory {
	d := &MemberDirectory{
		byID:       make(map[string]*member.Member),
		byTelegram: make(map[int64]string),
	}
	for _, m := range seed {
		_ = d.Create(context.Background(), m)
	}
	return d
}

func (d *MemberDirectory) Create(_ context.Context, m *member.Member) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byID[m.ID]; exists {
		return member.ErrDuplicateMember
	}
	if m.TelegramID != 0 {
		if _, exists := d.byTelegram[m.TelegramID]; exists {
			return member.ErrDuplicateMember
		}
		d.byTelegram[m.TelegramID] = m.ID
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	cp := *m
	d.byID[m.ID] = &cp
	return nil
}

func (d *MemberDirectory) GetByID(_ context.Context, id string) (*member.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", id, member.ErrMemberNotFound)
	}
	cp := *m
	return &cp, nil
}

func (d *MemberDirectory) GetByTelegramID(ctx context.Context, telegramID int64) (*member.Member, error) {
	d.mu.RLock()
	id, ok := d.byTelegram[telegramID]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("telegram id %d: %w", telegramID, member.ErrMemberNotFound)
	}
	return d.GetByID(ctx, id)
}

func (d *MemberDirectory) ListAll(_ context.Context) ([]*member.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*member.Member, 0, len(d.byID))
	for _, m := range d.byID {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
