package usecase

import (
	"fmt"
	"time"

	"github.com/eslsoft/wordladder/internal/entity"
)

// ApplyAnswer computes the next progress record for one scored answer.
// It is pure: the input record is not mutated and nothing is persisted.
// A nil transition means the state did not change and no streak was reset.
func ApplyAnswer(record *entity.ProgressRecord, mode entity.Mode, isCorrect bool, now time.Time) (*entity.ProgressRecord, *entity.Transition, error) {
	if record == nil {
		return nil, nil, entity.ErrProgressNotFound
	}

	switch mode {
	case entity.ModeStudy:
		return applyStudyAnswer(record, isCorrect, now)
	case entity.ModeReview:
		return applyReviewAnswer(record, isCorrect, now)
	default:
		return nil, nil, fmt.Errorf("%w: %q", entity.ErrInvalidMode, mode)
	}
}

func applyStudyAnswer(record *entity.ProgressRecord, isCorrect bool, now time.Time) (*entity.ProgressRecord, *entity.Transition, error) {
	if record.State != entity.StateStarted {
		return nil, nil, fmt.Errorf("%w: study answer on %s word", entity.ErrInvalidState, record.State)
	}

	next := record.Clone()
	studied := now
	next.LastStudied = &studied
	today := entity.Day(now)

	if !isCorrect {
		next.StudyStreak = 0
		return next, &entity.Transition{
			WordID: record.WordID,
			From:   entity.StateStarted,
			To:     entity.StateStarted,
			Streak: 0,
		}, nil
	}

	next.StudyStreak++
	if next.StudyStreak < entity.StudyPromoteThreshold {
		return next, nil, nil
	}

	streak := next.StudyStreak
	reviewOn := entity.AddDays(today, 1)
	next.State = entity.StateReady
	next.StudyStreak = 0
	next.ReviewInterval = entity.ReviewIntervals[0]
	next.NextReviewDate = &reviewOn
	return next, &entity.Transition{
		WordID:  record.WordID,
		From:    entity.StateStarted,
		To:      entity.StateReady,
		Streak:  streak,
		Correct: true,
	}, nil
}

func applyReviewAnswer(record *entity.ProgressRecord, isCorrect bool, now time.Time) (*entity.ProgressRecord, *entity.Transition, error) {
	if record.State != entity.StateReady && record.State != entity.StateMastered {
		return nil, nil, fmt.Errorf("%w: review answer on %s word", entity.ErrInvalidState, record.State)
	}

	next := record.Clone()
	studied := now
	next.LastStudied = &studied
	today := entity.Day(now)

	if !isCorrect {
		next.ReviewStreak = 0
		next.ReviewInterval = entity.ShrinkReviewInterval(record.ReviewInterval)
		// mastered words never carry a review date
		if record.State == entity.StateReady {
			reviewOn := entity.AddDays(today, next.ReviewInterval)
			next.NextReviewDate = &reviewOn
		}
		return next, &entity.Transition{
			WordID: record.WordID,
			From:   record.State,
			To:     record.State,
			Streak: 0,
		}, nil
	}

	next.ReviewStreak++
	if record.State == entity.StateReady {
		streak := next.ReviewStreak
		next.State = entity.StateMastered
		next.ReviewStreak = 0
		next.NextReviewDate = nil
		return next, &entity.Transition{
			WordID:  record.WordID,
			From:    entity.StateReady,
			To:      entity.StateMastered,
			Streak:  streak,
			Correct: true,
		}, nil
	}

	next.ReviewInterval = entity.NextReviewInterval(record.ReviewInterval)
	return next, nil, nil
}
