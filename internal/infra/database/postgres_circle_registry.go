package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"

	"github.com/lib/pq" // For pq.Array and error codes
)

// pq error codes mapped to domain errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// PostgresCircleRegistry stores circles in PostgreSQL.
// Ownership changes are a conditional UPDATE on a single circle_positions row,
// so contention is limited to that row's lock.
type PostgresCircleRegistry struct {
	db *sql.DB
}

func NewPostgresCircleRegistry(db *sql.DB) *PostgresCircleRegistry {
	return &PostgresCircleRegistry{db: db}
}

const circleColumns = `id, name, emoji, description, categories, start_date, cadence_days,
               contribution_amount, payout_amount, total_positions, created_by, created_at`

func (r *PostgresCircleRegistry) Create(ctx context.Context, c *circle.Circle) error {
	if err := c.Validate(); err != nil {
		return err
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for circle create: %w", err)
	}
	defer txn.Rollback() // no-op after commit

	categories := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		categories[i] = string(cat)
	}
	_, err = txn.ExecContext(ctx, `INSERT INTO circles (`+circleColumns+`)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.Name, c.Emoji, c.Description, pq.Array(categories), c.StartDate, int(c.Cadence),
		c.ContributionAmount, c.PayoutAmount, c.TotalPositions, c.CreatedBy, c.CreatedAt)
	if err != nil {
		if isPQError(err, uniqueViolation) {
			return fmt.Errorf("circle %s already exists: %w", c.ID, circle.ErrInvalidCircleParameters)
		}
		return fmt.Errorf("error creating circle: %w", err)
	}

	posStmt, err := txn.PrepareContext(ctx, `INSERT INTO circle_positions (circle_id, position_number, owner_id, joined_at, payout_date)
                                             VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer posStmt.Close()

	itemStmt, err := txn.PrepareContext(ctx, `INSERT INTO position_schedule_items (circle_id, position_number, step_index, due_date, kind, amount)
                                              VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule item insert: %w", err)
	}
	defer itemStmt.Close()

	for _, p := range c.Positions {
		owner := sql.NullString{String: p.OwnerID, Valid: p.OwnerID != ""}
		joined := sql.NullTime{Time: p.JoinedAt, Valid: p.OwnerID != ""}
		if _, err := posStmt.ExecContext(ctx, c.ID, p.PositionNumber, owner, joined, p.PayoutDate); err != nil {
			if isPQError(err, foreignKeyViolation) {
				return fmt.Errorf("owner of position %d: %w", p.PositionNumber, member.ErrMemberNotFound)
			}
			return fmt.Errorf("error creating position %d: %w", p.PositionNumber, err)
		}
		for k, item := range p.PaymentSchedule {
			if _, err := itemStmt.ExecContext(ctx, c.ID, p.PositionNumber, k, item.Date, string(item.Kind), item.Amount); err != nil {
				return fmt.Errorf("error creating schedule item %d of position %d: %w", k, p.PositionNumber, err)
			}
		}
	}

	return txn.Commit()
}

func (r *PostgresCircleRegistry) GetCircle(ctx context.Context, id string) (*circle.Circle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+circleColumns+` FROM circles WHERE id = $1`, id)
	c, err := scanCircle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("circle %s: %w", id, circle.ErrCircleNotFound)
		}
		return nil, fmt.Errorf("error getting circle by ID: %w", err)
	}
	if err := r.attachPositions(ctx, []*circle.Circle{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresCircleRegistry) ListCircles(ctx context.Context, filter circle.ListFilter) ([]*circle.Circle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+circleColumns+` FROM circles
               WHERE $1 = '' OR $1 = ANY(categories)
               ORDER BY created_at, id`, string(filter.Category))
	if err != nil {
		return nil, fmt.Errorf("error listing circles: %w", err)
	}
	defer rows.Close()

	circles := make([]*circle.Circle, 0)
	for rows.Next() {
		c, err := scanCircle(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning circle: %w", err)
		}
		circles = append(circles, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating circles: %w", err)
	}
	if len(circles) == 0 {
		return circles, nil
	}

	if err := r.attachPositions(ctx, circles); err != nil {
		return nil, err
	}
	out := circles[:0]
	for _, c := range circles {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *PostgresCircleRegistry) GetPosition(ctx context.Context, circleID string, positionNumber int) (*circle.Position, error) {
	p := &circle.Position{CircleID: circleID}
	var owner sql.NullString
	var joined sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT position_number, owner_id, joined_at, payout_date
               FROM circle_positions WHERE circle_id = $1 AND position_number = $2`, circleID, positionNumber).
		Scan(&p.PositionNumber, &owner, &joined, &p.PayoutDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, missingPosition(ctx, r.db, circleID, positionNumber)
		}
		return nil, fmt.Errorf("error getting position: %w", err)
	}
	p.OwnerID = owner.String
	p.JoinedAt = joined.Time

	if p.PaymentSchedule, err = loadSchedule(ctx, r.db, circleID, positionNumber); err != nil {
		return nil, err
	}
	return p, nil
}

// CompareAndSetOwner claims a vacant position with a conditional UPDATE. The
// claim is committed only once the returned position has been read in full.
func (r *PostgresCircleRegistry) CompareAndSetOwner(ctx context.Context, circleID string, positionNumber int, memberID string, joinedAt time.Time) (*circle.Position, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction for join: %w", err)
	}
	defer txn.Rollback() // no-op after commit

	p := &circle.Position{CircleID: circleID}
	var owner sql.NullString
	var joined sql.NullTime
	err = txn.QueryRowContext(ctx, `UPDATE circle_positions SET owner_id = $1, joined_at = $2
               WHERE circle_id = $3 AND position_number = $4 AND owner_id IS NULL
               RETURNING position_number, owner_id, joined_at, payout_date`,
		memberID, joinedAt, circleID, positionNumber).
		Scan(&p.PositionNumber, &owner, &joined, &p.PayoutDate)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, joinMiss(ctx, txn, circleID, positionNumber)
		case isPQError(err, uniqueViolation):
			return nil, fmt.Errorf("member %s in circle %s: %w", memberID, circleID, circle.ErrMemberAlreadyInCircle)
		case isPQError(err, foreignKeyViolation):
			return nil, fmt.Errorf("member %s: %w", memberID, member.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("error setting position owner: %w", err)
	}
	p.OwnerID = owner.String
	p.JoinedAt = joined.Time

	if p.PaymentSchedule, err = loadSchedule(ctx, txn, circleID, positionNumber); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}
	return p, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// joinMiss explains an UPDATE that matched no row.
func joinMiss(ctx context.Context, qr queryer, circleID string, positionNumber int) error {
	var exists bool
	err := qr.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM circle_positions
               WHERE circle_id = $1 AND position_number = $2)`, circleID, positionNumber).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking position existence: %w", err)
	}
	if exists {
		return fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionAlreadyFilled)
	}
	return missingPosition(ctx, qr, circleID, positionNumber)
}

func missingPosition(ctx context.Context, qr queryer, circleID string, positionNumber int) error {
	var exists bool
	err := qr.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM circles WHERE id = $1)`, circleID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking circle existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("circle %s: %w", circleID, circle.ErrCircleNotFound)
	}
	return fmt.Errorf("position %d of circle %s: %w", positionNumber, circleID, circle.ErrPositionNotFound)
}

func loadSchedule(ctx context.Context, qr queryer, circleID string, positionNumber int) ([]circle.PaymentScheduleItem, error) {
	rows, err := qr.QueryContext(ctx, `SELECT due_date, kind, amount FROM position_schedule_items
               WHERE circle_id = $1 AND position_number = $2 ORDER BY step_index`, circleID, positionNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying schedule items: %w", err)
	}
	defer rows.Close()

	var items []circle.PaymentScheduleItem
	for rows.Next() {
		var item circle.PaymentScheduleItem
		var kind string
		if err := rows.Scan(&item.Date, &kind, &item.Amount); err != nil {
			return nil, fmt.Errorf("error scanning schedule item: %w", err)
		}
		item.Kind = circle.PaymentKind(kind)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule items: %w", err)
	}
	return items, nil
}

// attachPositions loads positions and schedule items for all circles in two queries.
func (r *PostgresCircleRegistry) attachPositions(ctx context.Context, circles []*circle.Circle) error {
	ids := make([]string, len(circles))
	byID := make(map[string]*circle.Circle, len(circles))
	for i, c := range circles {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Positions = make([]circle.Position, 0, c.TotalPositions)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT circle_id, position_number, owner_id, joined_at, payout_date
               FROM circle_positions WHERE circle_id = ANY($1) ORDER BY circle_id, position_number`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying positions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p circle.Position
		var owner sql.NullString
		var joined sql.NullTime
		if err := rows.Scan(&p.CircleID, &p.PositionNumber, &owner, &joined, &p.PayoutDate); err != nil {
			return fmt.Errorf("error scanning position: %w", err)
		}
		p.OwnerID = owner.String
		p.JoinedAt = joined.Time
		if c, ok := byID[p.CircleID]; ok {
			c.Positions = append(c.Positions, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating positions: %w", err)
	}

	itemRows, err := r.db.QueryContext(ctx, `SELECT circle_id, position_number, due_date, kind, amount
               FROM position_schedule_items WHERE circle_id = ANY($1)
               ORDER BY circle_id, position_number, step_index`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("error querying schedule items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var circleID, kind string
		var number int
		var item circle.PaymentScheduleItem
		if err := itemRows.Scan(&circleID, &number, &item.Date, &kind, &item.Amount); err != nil {
			return fmt.Errorf("error scanning schedule item: %w", err)
		}
		item.Kind = circle.PaymentKind(kind)
		c, ok := byID[circleID]
		if !ok || number < 1 || number > len(c.Positions) {
			continue
		}
		p := &c.Positions[number-1]
		p.PaymentSchedule = append(p.PaymentSchedule, item)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("error iterating schedule items: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCircle(row rowScanner) (*circle.Circle, error) {
	c := &circle.Circle{}
	var categories pq.StringArray
	var cadence int
	err := row.Scan(&c.ID, &c.Name, &c.Emoji, &c.Description, &categories, &c.StartDate, &cadence,
		&c.ContributionAmount, &c.PayoutAmount, &c.TotalPositions, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Cadence = circle.Cadence(cadence)
	for _, cat := range categories {
		c.Categories = append(c.Categories, circle.Category(cat))
	}
	return c, nil
}

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
