package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

type sessionRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Mode           string    `db:"mode"`
	WordsStudied   int       `db:"words_studied"`
	CorrectAnswers int       `db:"correct_answers"`
	WordsPromoted  int       `db:"words_promoted"`
	WordsDemoted   int       `db:"words_demoted"`
	StartedAt      time.Time `db:"started_at"`
	CompletedAt    time.Time `db:"completed_at"`
}

// SessionRepository stores completed session logs.
type SessionRepository struct {
	db *sqlx.DB
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(ctx context.Context, log *entity.SessionLog) error {
	const stmt = `INSERT INTO session_logs (id, user_id, mode, words_studied, correct_answers,
			words_promoted, words_demoted, started_at, completed_at)
		VALUES (:id, :user_id, :mode, :words_studied, :correct_answers,
			:words_promoted, :words_demoted, :started_at, :completed_at)`

	row := sessionRow{
		ID:             log.ID,
		UserID:         log.UserID,
		Mode:           string(log.Mode),
		WordsStudied:   log.WordsStudied,
		CorrectAnswers: log.CorrectAnswers,
		WordsPromoted:  log.WordsPromoted,
		WordsDemoted:   log.WordsDemoted,
		StartedAt:      log.StartedAt.UTC(),
		CompletedAt:    log.CompletedAt.UTC(),
	}
	_, err := r.db.NamedExecContext(ctx, stmt, row)
	return translateError(err, nil)
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.SessionLog, error) {
	query := `SELECT id, user_id, mode, words_studied, correct_answers, words_promoted, words_demoted,
		started_at, completed_at FROM session_logs WHERE user_id = ? ORDER BY completed_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, translateError(err, nil)
	}
	out := make([]*entity.SessionLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.SessionLog{
			ID:             row.ID,
			UserID:         row.UserID,
			Mode:           entity.Mode(row.Mode),
			WordsStudied:   row.WordsStudied,
			CorrectAnswers: row.CorrectAnswers,
			WordsPromoted:  row.WordsPromoted,
			WordsDemoted:   row.WordsDemoted,
			StartedAt:      row.StartedAt.UTC(),
			CompletedAt:    row.CompletedAt.UTC(),
		})
	}
	return out, nil
}
