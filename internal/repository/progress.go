package repository

import (
	"context"
	"time"

	"github.com/eslsoft/wordladder/internal/entity"
)

// ProgressOrder names the supported sort keys for progress listings.
type ProgressOrder string

const (
	OrderByWordID         ProgressOrder = "word_id"
	OrderByNextReviewDate ProgressOrder = "next_review_date"
	OrderByLastStudied    ProgressOrder = "last_studied"
	OrderByStudyStreak    ProgressOrder = "study_streak"
	OrderByReviewStreak   ProgressOrder = "review_streak"
)

// ListProgressQuery holds parameters for listing a user's progress records.
// Zero-valued fields are ignored. Field names are also the binding targets of
// pkg/filterexpr, so renames must be mirrored in the filter schema.
type ListProgressQuery struct {
	Pagination

	UserID          string
	States          []string
	Tiers           []string
	WordIDs         []string
	DueOnOrBefore   *time.Time
	MinStudyStreak  *int
	MinReviewStreak *int

	PrimaryKey    string
	PrimaryDesc   bool
	SecondaryKey  string
	SecondaryDesc bool
}

// ProgressRepository is the Progress Store: a key-value store of records
// keyed by (userID, wordID).
type ProgressRepository interface {
	Get(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error)
	Upsert(ctx context.Context, record *entity.ProgressRecord) (*entity.ProgressRecord, error)
	Delete(ctx context.Context, userID, wordID string) error
	List(ctx context.Context, query *ListProgressQuery) ([]*entity.ProgressRecord, int64, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

// ListByState is the queryByUserAndState contract expressed over List.
func ListByState(ctx context.Context, repo ProgressRepository, userID string, state entity.WordState, order ProgressOrder) ([]*entity.ProgressRecord, error) {
	items, _, err := repo.List(ctx, &ListProgressQuery{
		UserID:       userID,
		States:       []string{string(state)},
		PrimaryKey:   string(order),
		SecondaryKey: string(OrderByWordID),
	})
	return items, err
}
