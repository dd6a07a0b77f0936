package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

const progressColumns = `user_id, word_id, state, study_streak, review_streak, last_studied,
	next_review_date, review_interval, created_at, updated_at`

type progressRow struct {
	UserID         string         `db:"user_id"`
	WordID         string         `db:"word_id"`
	State          string         `db:"state"`
	StudyStreak    int            `db:"study_streak"`
	ReviewStreak   int            `db:"review_streak"`
	LastStudied    sql.NullTime   `db:"last_studied"`
	NextReviewDate sql.NullString `db:"next_review_date"`
	ReviewInterval int            `db:"review_interval"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func toProgressRow(rec *entity.ProgressRecord) progressRow {
	row := progressRow{
		UserID:         rec.UserID,
		WordID:         rec.WordID,
		State:          string(rec.State),
		StudyStreak:    rec.StudyStreak,
		ReviewStreak:   rec.ReviewStreak,
		ReviewInterval: rec.ReviewInterval,
		CreatedAt:      rec.CreatedAt.UTC(),
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}
	if rec.LastStudied != nil {
		row.LastStudied = sql.NullTime{Time: rec.LastStudied.UTC(), Valid: true}
	}
	if rec.NextReviewDate != nil {
		row.NextReviewDate = sql.NullString{String: entity.FormatDay(*rec.NextReviewDate), Valid: true}
	}
	return row
}

func (r progressRow) toEntity() (*entity.ProgressRecord, error) {
	rec := &entity.ProgressRecord{
		UserID:         r.UserID,
		WordID:         r.WordID,
		State:          entity.WordState(r.State),
		StudyStreak:    r.StudyStreak,
		ReviewStreak:   r.ReviewStreak,
		ReviewInterval: r.ReviewInterval,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	if r.LastStudied.Valid {
		t := r.LastStudied.Time.UTC()
		rec.LastStudied = &t
	}
	if r.NextReviewDate.Valid && r.NextReviewDate.String != "" {
		day, err := entity.ParseDay(r.NextReviewDate.String)
		if err != nil {
			return nil, fmt.Errorf("decode next_review_date %q: %w", r.NextReviewDate.String, err)
		}
		rec.NextReviewDate = &day
	}
	return rec, nil
}

// ProgressRepository is the SQL Progress Store keyed by (user_id, word_id).
type ProgressRepository struct {
	db *sqlx.DB
}

var _ repository.ProgressRepository = (*ProgressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error) {
	var row progressRow
	query := r.db.Rebind(`SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = ? AND word_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, userID, wordID); err != nil {
		return nil, translateError(err, entity.ErrProgressNotFound)
	}
	return row.toEntity()
}

func (r *ProgressRepository) Upsert(ctx context.Context, record *entity.ProgressRecord) (*entity.ProgressRecord, error) {
	if record == nil {
		return nil, entity.ErrProgressNotFound
	}
	const stmt = `INSERT INTO user_progress (` + progressColumns + `)
		VALUES (:user_id, :word_id, :state, :study_streak, :review_streak, :last_studied,
			:next_review_date, :review_interval, :created_at, :updated_at)
		ON CONFLICT (user_id, word_id) DO UPDATE SET
			state = excluded.state,
			study_streak = excluded.study_streak,
			review_streak = excluded.review_streak,
			last_studied = excluded.last_studied,
			next_review_date = excluded.next_review_date,
			review_interval = excluded.review_interval,
			updated_at = excluded.updated_at`

	if _, err := r.db.NamedExecContext(ctx, stmt, toProgressRow(record)); err != nil {
		return nil, translateError(err, nil)
	}
	return r.Get(ctx, record.UserID, record.WordID)
}

func (r *ProgressRepository) Delete(ctx context.Context, userID, wordID string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM user_progress WHERE user_id = ? AND word_id = ?`), userID, wordID)
	if err != nil {
		return translateError(err, nil)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return entity.ErrProgressNotFound
	}
	return nil
}

var progressOrderColumns = map[string]struct {
	column   string
	nullable bool
}{
	string(repository.OrderByWordID):         {"word_id", false},
	string(repository.OrderByNextReviewDate): {"next_review_date", true},
	string(repository.OrderByLastStudied):    {"last_studied", true},
	string(repository.OrderByStudyStreak):    {"study_streak", false},
	string(repository.OrderByReviewStreak):   {"review_streak", false},
}

func (r *ProgressRepository) List(ctx context.Context, q *repository.ListProgressQuery) ([]*entity.ProgressRecord, int64, error) {
	if q == nil {
		q = &repository.ListProgressQuery{}
	}
	where, args, err := progressWhere(q)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM user_progress` + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, translateError(err, nil)
	}

	query := `SELECT ` + progressColumns + ` FROM user_progress` + where + progressOrderBy(q)
	if q.PageSize > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.Offset())
	}

	var rows []progressRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, 0, translateError(err, nil)
	}
	items := make([]*entity.ProgressRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toEntity()
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}

func (r *ProgressRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT DISTINCT user_id FROM user_progress ORDER BY user_id`); err != nil {
		return nil, translateError(err, nil)
	}
	return ids, nil
}

// progressWhere renders the filter with "?" placeholders; slices are expanded
// by sqlx.In.
func progressWhere(q *repository.ListProgressQuery) (string, []any, error) {
	var clauses []string
	var args []any
	add := func(clause string, values ...any) error {
		expanded, expandedArgs, err := sqlx.In(clause, values...)
		if err != nil {
			return fmt.Errorf("build filter %q: %w", clause, err)
		}
		clauses = append(clauses, expanded)
		args = append(args, expandedArgs...)
		return nil
	}

	if q.UserID != "" {
		if err := add(`user_id = ?`, q.UserID); err != nil {
			return "", nil, err
		}
	}
	if len(q.States) > 0 {
		if err := add(`state IN (?)`, q.States); err != nil {
			return "", nil, err
		}
	}
	if len(q.WordIDs) > 0 {
		if err := add(`word_id IN (?)`, q.WordIDs); err != nil {
			return "", nil, err
		}
	}
	if len(q.Tiers) > 0 {
		if err := add(`word_id IN (SELECT id FROM words WHERE tier IN (?))`, q.Tiers); err != nil {
			return "", nil, err
		}
	}
	if q.DueOnOrBefore != nil {
		if err := add(`next_review_date IS NOT NULL AND next_review_date <= ?`, entity.FormatDay(*q.DueOnOrBefore)); err != nil {
			return "", nil, err
		}
	}
	if q.MinStudyStreak != nil {
		if err := add(`study_streak >= ?`, *q.MinStudyStreak); err != nil {
			return "", nil, err
		}
	}
	if q.MinReviewStreak != nil {
		if err := add(`review_streak >= ?`, *q.MinReviewStreak); err != nil {
			return "", nil, err
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args, nil
}

// progressOrderBy renders whitelisted keys only. NULLs sort last on both
// dialects.
func progressOrderBy(q *repository.ListProgressQuery) string {
	var parts []string
	used := map[string]bool{}
	appendKey := func(key string, desc bool) {
		col, ok := progressOrderColumns[key]
		if !ok || used[col.column] {
			return
		}
		used[col.column] = true
		dir := "ASC"
		if desc {
			dir = "DESC"
		}
		if col.nullable {
			parts = append(parts, fmt.Sprintf("CASE WHEN %s IS NULL THEN 1 ELSE 0 END", col.column))
		}
		parts = append(parts, col.column+" "+dir)
	}
	appendKey(q.PrimaryKey, q.PrimaryDesc)
	appendKey(q.SecondaryKey, q.SecondaryDesc)
	appendKey(string(repository.OrderByWordID), false)
	parts = append(parts, "user_id ASC")
	return ` ORDER BY ` + strings.Join(parts, ", ")
}
