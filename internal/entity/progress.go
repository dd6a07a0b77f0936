package entity

import (
	"strings"
	"time"
)

// WordState is a word's memorization state for one user.
type WordState string

const (
	StateNotStarted WordState = "not_started"
	StateStarted    WordState = "started"
	StateReady      WordState = "ready"
	StateMastered   WordState = "mastered"
)

// Rank orders states from least to most mastered; unknown states rank -1.
func (s WordState) Rank() int {
	switch s {
	case StateNotStarted:
		return 0
	case StateStarted:
		return 1
	case StateReady:
		return 2
	case StateMastered:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known states.
func (s WordState) Valid() bool { return s.Rank() >= 0 }

// ParseWordState converts a string into a WordState.
func ParseWordState(value string) (WordState, error) {
	state := WordState(strings.ToLower(strings.TrimSpace(value)))
	if !state.Valid() {
		return "", ErrInvalidState
	}
	return state, nil
}

// Mode is the quiz mode an answer was given in.
type Mode string

const (
	ModeStudy  Mode = "study"
	ModeReview Mode = "review"
)

// ParseMode converts a string into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeStudy:
		return ModeStudy, nil
	case ModeReview:
		return ModeReview, nil
	default:
		return "", ErrInvalidMode
	}
}

// StudyPromoteThreshold is the number of consecutive correct study answers
// that moves a started word to ready.
const StudyPromoteThreshold = 3

// ReviewIntervals is the fixed spacing table in days.
var ReviewIntervals = []int{1, 3, 7, 14, 30}

// MaxReviewInterval is the last entry of ReviewIntervals.
const MaxReviewInterval = 30

// NextReviewInterval advances current one step through ReviewIntervals,
// saturating at the maximum. Values outside the table jump to the maximum.
func NextReviewInterval(current int) int {
	for i, v := range ReviewIntervals {
		if v == current {
			if i == len(ReviewIntervals)-1 {
				return v
			}
			return ReviewIntervals[i+1]
		}
	}
	return MaxReviewInterval
}

// ShrinkReviewInterval halves current (floor, at least 1) and snaps the
// result down to the nearest table value so it stays inside ReviewIntervals.
func ShrinkReviewInterval(current int) int {
	half := current / 2
	if half < 1 {
		half = 1
	}
	result := ReviewIntervals[0]
	for _, v := range ReviewIntervals {
		if v <= half {
			result = v
		}
	}
	return result
}

// ValidReviewInterval reports whether days is a member of ReviewIntervals.
func ValidReviewInterval(days int) bool {
	for _, v := range ReviewIntervals {
		if v == days {
			return true
		}
	}
	return false
}

// ProgressRecord is the per-(user, word) scheduling state.
type ProgressRecord struct {
	UserID         string     `json:"user_id"`
	WordID         string     `json:"word_id"`
	State          WordState  `json:"state"`
	StudyStreak    int        `json:"study_streak"`
	ReviewStreak   int        `json:"review_streak"`
	LastStudied    *time.Time `json:"last_studied,omitempty"`
	NextReviewDate *time.Time `json:"next_review_date,omitempty"`
	ReviewInterval int        `json:"review_interval"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewStartedRecord builds the record created when a word enters the active pool.
func NewStartedRecord(userID, wordID string, now time.Time) *ProgressRecord {
	studied := now
	return &ProgressRecord{
		UserID:         userID,
		WordID:         wordID,
		State:          StateStarted,
		LastStudied:    &studied,
		ReviewInterval: ReviewIntervals[0],
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy so callers never share time pointers.
func (p *ProgressRecord) Clone() *ProgressRecord {
	if p == nil {
		return nil
	}
	c := *p
	if p.LastStudied != nil {
		t := *p.LastStudied
		c.LastStudied = &t
	}
	if p.NextReviewDate != nil {
		t := *p.NextReviewDate
		c.NextReviewDate = &t
	}
	return &c
}

// ResetToStarted overwrites the record as a fresh active-pool entry. It is the
// administrative "put back to study" write and never touches the interval.
func (p *ProgressRecord) ResetToStarted(now time.Time) {
	studied := now
	p.State = StateStarted
	p.StudyStreak = 0
	p.ReviewStreak = 0
	p.NextReviewDate = nil
	p.LastStudied = &studied
}

// Normalize enforces storage invariants before persistence.
func (p *ProgressRecord) Normalize(now time.Time) {
	p.UserID = NormalizeID(p.UserID)
	p.WordID = NormalizeID(p.WordID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if !ValidReviewInterval(p.ReviewInterval) {
		p.ReviewInterval = ReviewIntervals[0]
	}
	if p.StudyStreak < 0 {
		p.StudyStreak = 0
	}
	if p.ReviewStreak < 0 {
		p.ReviewStreak = 0
	}
	if p.State != StateReady {
		p.NextReviewDate = nil
	}
	if p.NextReviewDate != nil {
		day := Day(*p.NextReviewDate)
		p.NextReviewDate = &day
	}
}

// Transition describes the state movement produced by one answer.
type Transition struct {
	WordID  string    `json:"word_id"`
	From    WordState `json:"from_state"`
	To      WordState `json:"to_state"`
	Streak  int       `json:"streak"`
	Correct bool      `json:"is_correct"`
}

// IsStateChange reports whether the word changed state.
func (t Transition) IsStateChange() bool { return t.From != t.To }

// IsPromotion reports a move to a more mastered state.
func (t Transition) IsPromotion() bool { return t.To.Rank() > t.From.Rank() }

// IsDemotion reports a move to a less mastered state.
func (t Transition) IsDemotion() bool { return t.To.Rank() < t.From.Rank() }
