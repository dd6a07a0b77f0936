package usecase

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
	"github.com/eslsoft/wordladder/pkg/filterexpr"
)

const (
	_defaultPageSize = int32(50)
	_maxPageSize     = int32(1000)
)

// ListWordsRequest carries the raw listing parameters of the word list page.
type ListWordsRequest struct {
	UserID   string
	Filter   string
	OrderBy  string
	PageNo   int32
	PageSize int32
}

func (r ListWordsRequest) GetFilter() string  { return r.Filter }
func (r ListWordsRequest) GetOrderBy() string { return r.OrderBy }

// WordUsecase holds the administrative overrides that bypass scoring, plus
// the read-side listings of a user's words.
type WordUsecase interface {
	PutBackToStudy(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error)
	RemoveWord(ctx context.Context, userID, wordID string) error
	ListWords(ctx context.Context, req ListWordsRequest) ([]*entity.ProgressRecord, int64, error)
	DueForReview(ctx context.Context, userID string, today time.Time, limit int) ([]*entity.ProgressRecord, error)
}

func NewWordUsecase(progress repository.ProgressRepository) WordUsecase {
	return &wordUsecase{
		progress: progress,
		clock:    time.Now,
	}
}

type wordUsecase struct {
	progress repository.ProgressRepository
	clock    func() time.Time
}

func (u *wordUsecase) PutBackToStudy(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error) {
	userID, wordID, err := normalizeKey(userID, wordID)
	if err != nil {
		return nil, err
	}
	record, err := u.progress.Get(ctx, userID, wordID)
	if err != nil {
		return nil, entity.NewStorageError("get progress", err)
	}

	now := u.clock()
	record.ResetToStarted(now)
	record.Normalize(now)
	saved, err := u.progress.Upsert(ctx, record)
	if err != nil {
		return nil, entity.NewStorageError("upsert progress", err)
	}
	return saved, nil
}

func (u *wordUsecase) RemoveWord(ctx context.Context, userID, wordID string) error {
	userID, wordID, err := normalizeKey(userID, wordID)
	if err != nil {
		return err
	}
	if _, err := u.progress.Get(ctx, userID, wordID); err != nil {
		return entity.NewStorageError("get progress", err)
	}
	return entity.NewStorageError("delete progress", u.progress.Delete(ctx, userID, wordID))
}

func (u *wordUsecase) ListWords(ctx context.Context, req ListWordsRequest) ([]*entity.ProgressRecord, int64, error) {
	userID := entity.NormalizeID(req.UserID)
	if userID == "" {
		return nil, 0, entity.ErrInvalidUserID
	}

	query := &repository.ListProgressQuery{UserID: userID}
	if err := filterexpr.Bind(req, query, progressListSchema); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", entity.ErrInvalidFilter, err)
	}

	query.PageNo = req.PageNo
	if query.PageNo <= 0 {
		query.PageNo = 1
	}
	query.PageSize = req.PageSize
	switch {
	case query.PageSize <= 0:
		query.PageSize = _defaultPageSize
	case query.PageSize > _maxPageSize:
		query.PageSize = _maxPageSize
	}

	items, total, err := u.progress.List(ctx, query)
	if err != nil {
		return nil, 0, entity.NewStorageError("list progress", err)
	}
	return items, total, nil
}

func (u *wordUsecase) DueForReview(ctx context.Context, userID string, today time.Time, limit int) ([]*entity.ProgressRecord, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	if today.IsZero() {
		today = u.clock()
	}
	return dueForReview(ctx, u.progress, userID, today, limit)
}

// dueForReview lists ready records whose review date is on or before today,
// earliest first. A non-positive limit returns every due record.
func dueForReview(ctx context.Context, progress repository.ProgressRepository, userID string, today time.Time, limit int) ([]*entity.ProgressRecord, error) {
	day := entity.Day(today)
	query := &repository.ListProgressQuery{
		UserID:        userID,
		States:        []string{string(entity.StateReady)},
		DueOnOrBefore: &day,
		PrimaryKey:    string(repository.OrderByNextReviewDate),
		SecondaryKey:  string(repository.OrderByWordID),
	}
	if limit > 0 {
		query.PageNo = 1
		query.PageSize = int32(limit)
	}
	items, _, err := progress.List(ctx, query)
	if err != nil {
		return nil, entity.NewStorageError("list due progress", err)
	}
	return items, nil
}

func normalizeKey(userID, wordID string) (string, string, error) {
	userID = entity.NormalizeID(userID)
	wordID = entity.NormalizeID(wordID)
	if userID == "" {
		return "", "", entity.ErrInvalidUserID
	}
	if wordID == "" {
		return "", "", entity.ErrInvalidWordID
	}
	return userID, wordID, nil
}

// progressListSchema exposes the filterable and sortable progress fields.
var progressListSchema = filterexpr.ResourceSchema{
	Filter: map[string]filterexpr.FilterField{
		"state": {
			Kind:   filterexpr.KindString,
			Ops:    map[filterexpr.Op]string{filterexpr.OpEQ: "States", filterexpr.OpIN: "States"},
			Setter: appendStates,
		},
		"tier": {
			Kind:   filterexpr.KindString,
			Ops:    map[filterexpr.Op]string{filterexpr.OpEQ: "Tiers", filterexpr.OpIN: "Tiers"},
			Setter: filterexpr.AppendStrings,
		},
		"word_id": {
			Kind:   filterexpr.KindString,
			Ops:    map[filterexpr.Op]string{filterexpr.OpEQ: "WordIDs", filterexpr.OpIN: "WordIDs"},
			Setter: filterexpr.AppendStrings,
		},
		"next_review_date": {
			Kind: filterexpr.KindDate,
			Ops:  map[filterexpr.Op]string{filterexpr.OpLTE: "DueOnOrBefore"},
		},
		"study_streak": {
			Kind: filterexpr.KindNumber,
			Ops:  map[filterexpr.Op]string{filterexpr.OpGTE: "MinStudyStreak"},
		},
		"review_streak": {
			Kind: filterexpr.KindNumber,
			Ops:  map[filterexpr.Op]string{filterexpr.OpGTE: "MinReviewStreak"},
		},
	},
	Order: filterexpr.OrderSchema{
		DefaultPrimary: string(repository.OrderByWordID),
		FallbackKey:    string(repository.OrderByLastStudied),
		Fields: map[string]filterexpr.OrderField{
			string(repository.OrderByWordID):         {Expr: "word_id"},
			string(repository.OrderByNextReviewDate): {Expr: "next_review_date", Nulls: "last"},
			string(repository.OrderByLastStudied):    {Expr: "last_studied", Nulls: "last"},
			string(repository.OrderByStudyStreak):    {Expr: "study_streak"},
			string(repository.OrderByReviewStreak):   {Expr: "review_streak"},
		},
	},
}

// appendStates validates state names before collecting them.
func appendStates(field reflect.Value, value any) error {
	values, err := filterexpr.StringValues(value)
	if err != nil {
		return err
	}
	for _, v := range values {
		if _, err := entity.ParseWordState(v); err != nil {
			return fmt.Errorf("unknown state %q", v)
		}
	}
	return filterexpr.AppendStrings(field, values)
}
