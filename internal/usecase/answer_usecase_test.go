package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/adapter/repository/memory"
	"github.com/eslsoft/wordladder/internal/entity"
)

type answerFixture struct {
	uc       *answerUsecase
	pool     *poolUsecase
	progress *flakyProgress
	pub      *recordingPublisher
}

func newAnswerFixture(t *testing.T, capacity int, tiers ...tierSpec) answerFixture {
	t.Helper()
	catalog := buildCatalog(t, tiers...)
	progress := &flakyProgress{ProgressRepository: memory.NewProgress(catalog)}
	pub := &recordingPublisher{}
	pool := NewPoolUsecase(progress, catalog, pub, Settings{PoolCapacity: capacity}, quietLogger()).(*poolUsecase)
	pool.clock = fixedClock(testNow)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	uc := NewAnswerUsecase(progress, pool, pub, logger).(*answerUsecase)
	uc.clock = fixedClock(testNow)
	return answerFixture{uc: uc, pool: pool, progress: progress, pub: pub}
}

func TestSubmitAnswer_MissingRecordIsNotCreated(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 3})
	ctx := context.Background()

	_, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeStudy, IsCorrect: true})
	if !errors.Is(err, entity.ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound, got %v", err)
	}
	if _, err := f.progress.Get(ctx, "u1", "top_25-01"); !errors.Is(err, entity.ErrProgressNotFound) {
		t.Fatalf("answer must not create a record, got %v", err)
	}
}

func TestSubmitAnswer_StudyPromotionPersists(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := f.pool.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}

	var last *AnswerResult
	for i := 0; i < entity.StudyPromoteThreshold; i++ {
		res, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeStudy, IsCorrect: true})
		if err != nil {
			t.Fatalf("SubmitAnswer %d error: %v", i, err)
		}
		last = res
	}
	if last.Transition == nil || last.Transition.To != entity.StateReady {
		t.Fatalf("expected started->ready, got %+v", last.Transition)
	}
	stored := mustGet(t, f.progress, "u1", "top_25-01")
	if stored.State != entity.StateReady || stored.NextReviewDate == nil || !stored.NextReviewDate.Equal(entity.AddDays(testNow, 1)) {
		t.Fatalf("unexpected stored record %+v", stored)
	}
	if last.Mastery != nil {
		t.Fatalf("ready is not mastery, got %+v", last.Mastery)
	}
	if len(f.pub.transitions) != 1 {
		t.Fatalf("expected one published transition, got %d", len(f.pub.transitions))
	}
}

func TestSubmitAnswer_MasteryTriggersRefill(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 5})
	ctx := context.Background()
	if _, err := f.pool.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	rec := mustGet(t, f.progress, "u1", "top_25-01")
	rec.State = entity.StateReady
	rec.NextReviewDate = dayPtr(testNow)
	seedRecord(t, f.progress, rec)

	res, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeReview, IsCorrect: true})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}
	if res.Record.State != entity.StateMastered || res.Record.NextReviewDate != nil {
		t.Fatalf("unexpected record %+v", res.Record)
	}
	if res.Mastery == nil || len(res.Mastery.Added) != 1 || res.Mastery.Added[0].WordID != "top_25-04" {
		t.Fatalf("expected top_25-04 backfilled, got %+v", res.Mastery)
	}
}

func TestSubmitAnswer_WriteFailureLeavesRecordUntouched(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := f.pool.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	before := mustGet(t, f.progress, "u1", "top_25-01")

	f.progress.set(func(p *flakyProgress) { p.failUpserts = true })
	_, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeStudy, IsCorrect: true})
	var storageErr *entity.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	after := mustGet(t, f.progress, "u1", "top_25-01")
	if after.StudyStreak != before.StudyStreak {
		t.Fatalf("record changed on failed write: %+v", after)
	}
	if len(f.pub.transitions) != 0 {
		t.Fatalf("nothing should be published on failure")
	}
}

func TestSubmitAnswer_RefillFailureDoesNotFailAnswer(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 5})
	ctx := context.Background()
	if _, err := f.pool.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	rec := mustGet(t, f.progress, "u1", "top_25-01")
	rec.State = entity.StateReady
	rec.NextReviewDate = dayPtr(testNow)
	seedRecord(t, f.progress, rec)

	// only writes of new pool words fail
	f.progress.set(func(p *flakyProgress) {
		p.failUpserts = true
		p.failWordIDs = map[string]bool{"top_25-04": true}
	})
	res, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeReview, IsCorrect: true})
	if err != nil {
		t.Fatalf("answer should succeed despite refill failure, got %v", err)
	}
	if got := mustGet(t, f.progress, "u1", "top_25-01"); got.State != entity.StateMastered {
		t.Fatalf("mastery write lost: %+v", got)
	}
	if res.Mastery == nil || len(res.Mastery.Added) != 0 {
		t.Fatalf("expected empty refill, got %+v", res.Mastery)
	}

	f.progress.set(func(p *flakyProgress) { p.failUpserts = false })
	added, err := f.pool.RefillPool(ctx, "u1")
	if err != nil || len(added) != 1 {
		t.Fatalf("pool should self-heal on the next refill, got %d %v", len(added), err)
	}
}

func TestSubmitAnswer_InvalidInput(t *testing.T) {
	f := newAnswerFixture(t, 3, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := f.uc.SubmitAnswer(ctx, AnswerRequest{WordID: "w"}); !errors.Is(err, entity.ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if _, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u"}); !errors.Is(err, entity.ErrInvalidWordID) {
		t.Fatalf("expected ErrInvalidWordID, got %v", err)
	}
	if _, err := f.pool.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	if _, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeReview, IsCorrect: true}); !errors.Is(err, entity.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSubmitAnswer_RemasteryAfterPutBackDoesNotUnlockAgain(t *testing.T) {
	f := newAnswerFixture(t, 2, tierSpec{"top_25", 2}, tierSpec{"top_50", 2})
	ctx := context.Background()

	first := entity.NewStartedRecord("u1", "top_25-01", testNow)
	first.State = entity.StateMastered
	seedRecord(t, f.progress, first)
	second := entity.NewStartedRecord("u1", "top_25-02", testNow)
	second.State = entity.StateReady
	second.ReviewInterval = 1
	second.NextReviewDate = dayPtr(testNow)
	seedRecord(t, f.progress, second)

	res, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-02", Mode: entity.ModeReview, IsCorrect: true})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}
	if res.Mastery == nil || res.Mastery.Unlocked == nil || res.Mastery.Unlocked.NewTier != "top_50" {
		t.Fatalf("expected top_50 unlock, got %+v", res.Mastery)
	}

	words := NewWordUsecase(f.progress)
	if _, err := words.PutBackToStudy(ctx, "u1", "top_25-01"); err != nil {
		t.Fatalf("PutBackToStudy error: %v", err)
	}
	for i := 0; i < entity.StudyPromoteThreshold; i++ {
		if _, err := f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeStudy, IsCorrect: true}); err != nil {
			t.Fatalf("study answer %d: %v", i, err)
		}
	}
	res, err = f.uc.SubmitAnswer(ctx, AnswerRequest{UserID: "u1", WordID: "top_25-01", Mode: entity.ModeReview, IsCorrect: true})
	if err != nil {
		t.Fatalf("SubmitAnswer error: %v", err)
	}
	if res.Record.State != entity.StateMastered {
		t.Fatalf("expected top_25-01 mastered again, got %s", res.Record.State)
	}
	if res.Mastery == nil || res.Mastery.Unlocked != nil {
		t.Fatalf("tier was already unlocked, got %+v", res.Mastery)
	}
	if len(f.pub.unlocks) != 1 {
		t.Fatalf("expected a single published unlock, got %d", len(f.pub.unlocks))
	}
}
