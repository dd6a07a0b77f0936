package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Tables lists the managed tables in creation order.
var Tables = []string{"words", "user_progress", "session_logs"}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	ts := "TIMESTAMP"
	if db.DriverName() != "sqlite3" {
		ts = "TIMESTAMPTZ"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			definition TEXT NOT NULL DEFAULT '',
			part_of_speech TEXT NOT NULL DEFAULT '',
			tier TEXT NOT NULL,
			difficulty TEXT NOT NULL DEFAULT 'Medium',
			position INTEGER NOT NULL DEFAULT 0,
			example_sentence TEXT NOT NULL DEFAULT '',
			created_at {ts} NOT NULL,
			updated_at {ts} NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_words_tier_position ON words (tier, position)`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			user_id TEXT NOT NULL,
			word_id TEXT NOT NULL,
			state TEXT NOT NULL CHECK (state IN ('not_started', 'started', 'ready', 'mastered')),
			study_streak INTEGER NOT NULL DEFAULT 0 CHECK (study_streak >= 0),
			review_streak INTEGER NOT NULL DEFAULT 0 CHECK (review_streak >= 0),
			last_studied {ts} NULL,
			next_review_date TEXT NULL,
			review_interval INTEGER NOT NULL DEFAULT 1 CHECK (review_interval IN (1, 3, 7, 14, 30)),
			created_at {ts} NOT NULL,
			updated_at {ts} NOT NULL,
			PRIMARY KEY (user_id, word_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_progress_due ON user_progress (user_id, state, next_review_date)`,
		`CREATE TABLE IF NOT EXISTS session_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			words_studied INTEGER NOT NULL DEFAULT 0,
			correct_answers INTEGER NOT NULL DEFAULT 0,
			words_promoted INTEGER NOT NULL DEFAULT 0,
			words_demoted INTEGER NOT NULL DEFAULT 0,
			started_at {ts} NOT NULL,
			completed_at {ts} NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_logs_user ON session_logs (user_id, completed_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{ts}", ts)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
