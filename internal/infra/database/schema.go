package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements create the circle tables. Each statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		avatar_url   TEXT,
		telegram_id  BIGINT UNIQUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS circles (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		emoji               TEXT NOT NULL DEFAULT '',
		description         TEXT NOT NULL DEFAULT '',
		categories          TEXT[] NOT NULL DEFAULT '{}',
		start_date          TIMESTAMPTZ NOT NULL,
		cadence_days        INTEGER NOT NULL CHECK (cadence_days > 0),
		contribution_amount NUMERIC(14,2) NOT NULL CHECK (contribution_amount >= 0),
		payout_amount       NUMERIC(14,2) NOT NULL CHECK (payout_amount >= 0),
		total_positions     INTEGER NOT NULL CHECK (total_positions >= 2),
		created_by          TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS circle_positions (
		circle_id       TEXT NOT NULL REFERENCES circles(id),
		position_number INTEGER NOT NULL CHECK (position_number >= 1),
		owner_id        TEXT REFERENCES members(id),
		joined_at       TIMESTAMPTZ,
		payout_date     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (circle_id, position_number)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS circle_positions_owner_unique
		ON circle_positions (circle_id, owner_id) WHERE owner_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS position_schedule_items (
		circle_id       TEXT NOT NULL,
		position_number INTEGER NOT NULL,
		step_index      INTEGER NOT NULL,
		due_date        TIMESTAMPTZ NOT NULL,
		kind            TEXT NOT NULL CHECK (kind IN ('CONTRIBUTION', 'PAYOUT')),
		amount          NUMERIC(14,2) NOT NULL,
		PRIMARY KEY (circle_id, position_number, step_index),
		FOREIGN KEY (circle_id, position_number) REFERENCES circle_positions(circle_id, position_number)
	)`,
}

// ApplySchema creates missing tables and indexes.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
