package mapping

import (
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/usecase"
)

// Progress is the wire form of a progress record. Review dates are calendar
// days rendered as YYYY-MM-DD.
type Progress struct {
	UserID         string     `json:"user_id"`
	WordID         string     `json:"word_id"`
	State          string     `json:"state"`
	StudyStreak    int        `json:"study_streak"`
	ReviewStreak   int        `json:"review_streak"`
	ReviewInterval int        `json:"review_interval"`
	NextReviewDate string     `json:"next_review_date,omitempty"`
	LastStudied    *time.Time `json:"last_studied,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Transition struct {
	WordID  string `json:"word_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Streak  int    `json:"streak"`
	Correct bool   `json:"is_correct"`
	Promote bool   `json:"promoted"`
	Demote  bool   `json:"demoted"`
}

type Mastery struct {
	Added    []Progress         `json:"added"`
	Unlocked *entity.TierUnlock `json:"unlocked,omitempty"`
}

// Answer is the response body of every answer-shaped endpoint.
type Answer struct {
	Record     Progress    `json:"record"`
	Transition *Transition `json:"transition,omitempty"`
	Mastery    *Mastery    `json:"mastery,omitempty"`
}

type ProgressList struct {
	Items []Progress `json:"items"`
	Total int64      `json:"total"`
}

func ToProgress(rec *entity.ProgressRecord) Progress {
	out := Progress{
		UserID:         rec.UserID,
		WordID:         rec.WordID,
		State:          string(rec.State),
		StudyStreak:    rec.StudyStreak,
		ReviewStreak:   rec.ReviewStreak,
		ReviewInterval: rec.ReviewInterval,
		LastStudied:    rec.LastStudied,
		UpdatedAt:      rec.UpdatedAt,
	}
	if rec.NextReviewDate != nil {
		out.NextReviewDate = entity.FormatDay(*rec.NextReviewDate)
	}
	return out
}

func ToProgresses(records []*entity.ProgressRecord) []Progress {
	return lo.Map(records, func(rec *entity.ProgressRecord, _ int) Progress {
		return ToProgress(rec)
	})
}

func ToTransition(t *entity.Transition) *Transition {
	if t == nil {
		return nil
	}
	return &Transition{
		WordID:  t.WordID,
		From:    string(t.From),
		To:      string(t.To),
		Streak:  t.Streak,
		Correct: t.Correct,
		Promote: t.IsPromotion(),
		Demote:  t.IsDemotion(),
	}
}

func ToAnswer(res *usecase.AnswerResult) Answer {
	out := Answer{
		Record:     ToProgress(res.Record),
		Transition: ToTransition(res.Transition),
	}
	if res.Mastery != nil {
		out.Mastery = &Mastery{
			Added:    ToProgresses(res.Mastery.Added),
			Unlocked: res.Mastery.Unlocked,
		}
	}
	return out
}
