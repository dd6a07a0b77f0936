package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

// AnswerRequest is one scored answer for a word already in scheduling.
type AnswerRequest struct {
	UserID    string
	WordID    string
	Mode      entity.Mode
	IsCorrect bool
}

// AnswerResult carries the persisted record and any side effects of the answer.
type AnswerResult struct {
	Record     *entity.ProgressRecord `json:"record"`
	Transition *entity.Transition     `json:"transition,omitempty"`
	Mastery    *MasteryOutcome        `json:"mastery,omitempty"`
}

// AnswerUsecase runs the read-modify-write cycle for a single answer.
type AnswerUsecase interface {
	SubmitAnswer(ctx context.Context, req AnswerRequest) (*AnswerResult, error)
}

// NewAnswerUsecase wires the answer pipeline.
func NewAnswerUsecase(progress repository.ProgressRepository, pool PoolUsecase, publisher EventPublisher, logger logrus.FieldLogger) AnswerUsecase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &answerUsecase{
		progress:  progress,
		pool:      pool,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
}

type answerUsecase struct {
	progress  repository.ProgressRepository
	pool      PoolUsecase
	publisher EventPublisher
	logger    logrus.FieldLogger
	clock     func() time.Time
}

func (u *answerUsecase) SubmitAnswer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	userID := entity.NormalizeID(req.UserID)
	wordID := entity.NormalizeID(req.WordID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	if wordID == "" {
		return nil, entity.ErrInvalidWordID
	}

	current, err := u.progress.Get(ctx, userID, wordID)
	if err != nil {
		return nil, entity.NewStorageError("get progress", err)
	}

	now := u.clock()
	next, transition, err := ApplyAnswer(current, req.Mode, req.IsCorrect, now)
	if err != nil {
		return nil, err
	}
	next.Normalize(now)

	saved, err := u.progress.Upsert(ctx, next)
	if err != nil {
		return nil, entity.NewStorageError("upsert progress", err)
	}
	result := &AnswerResult{Record: saved, Transition: transition}

	if transition != nil && transition.To == entity.StateMastered && transition.IsStateChange() {
		outcome, err := u.pool.HandleWordMastery(ctx, userID, wordID)
		if err != nil {
			// the mastery write stands; the next refill tops the pool up
			u.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"word_id": wordID,
			}).Warn("pool refill after mastery failed")
		}
		result.Mastery = outcome
	}

	if transition != nil {
		if err := u.publisher.PublishTransition(ctx, userID, *transition); err != nil {
			u.logger.WithError(err).WithField("user_id", userID).Debug("publish transition")
		}
	}
	return result, nil
}
