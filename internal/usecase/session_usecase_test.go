package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/adapter/repository/memory"
	"github.com/eslsoft/wordladder/internal/entity"
)

type sessionFixture struct {
	uc       *sessionUsecase
	pool     PoolUsecase
	progress *flakyProgress
	logs     *memory.Sessions
}

func newSessionFixture(t *testing.T, settings Settings, tiers ...tierSpec) sessionFixture {
	t.Helper()
	catalog := buildCatalog(t, tiers...)
	progress := &flakyProgress{ProgressRepository: memory.NewProgress(catalog)}
	logs := memory.NewSessions()

	pool := NewPoolUsecase(progress, catalog, nil, settings, nil).(*poolUsecase)
	pool.clock = fixedClock(testNow)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	answers := NewAnswerUsecase(progress, pool, nil, logger).(*answerUsecase)
	answers.clock = fixedClock(testNow)

	uc := NewSessionUsecase(progress, catalog, logs, pool, answers, settings).(*sessionUsecase)
	uc.clock = fixedClock(testNow)
	uc.shuffle = func(in []string) []string { return in }
	return sessionFixture{uc: uc, pool: pool, progress: progress, logs: logs}
}

func makeReady(t *testing.T, f sessionFixture, wordID string, due time.Time) {
	t.Helper()
	rec := entity.NewStartedRecord("u1", wordID, testNow.AddDate(0, 0, -3))
	rec.State = entity.StateReady
	rec.ReviewInterval = 3
	rec.NextReviewDate = dayPtr(due)
	seedRecord(t, f.progress, rec)
}

func TestStartStudy_CapsQuizAndBuildsOptions(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 5, StudyQuizSize: 3}, tierSpec{"top_25", 6}, tierSpec{"top_50", 2})

	s, err := f.uc.StartStudy(context.Background(), "u1")
	if err != nil {
		t.Fatalf("StartStudy error: %v", err)
	}
	if s.ID == "" || s.Mode != entity.ModeStudy {
		t.Fatalf("unexpected session %+v", s)
	}
	if len(s.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(s.Questions))
	}
	for _, q := range s.Questions {
		if len(q.Options) != 1+distractorCount {
			t.Fatalf("expected %d options, got %v", 1+distractorCount, q.Options)
		}
		if q.Options[0] != q.Answer {
			t.Fatalf("answer missing from options %v", q.Options)
		}
		seen := map[string]bool{}
		for _, opt := range q.Options {
			if seen[opt] {
				t.Fatalf("duplicate option %q in %v", opt, q.Options)
			}
			seen[opt] = true
		}
		if q.Tier != "top_25" {
			t.Fatalf("unexpected tier %q", q.Tier)
		}
	}
}

func TestStartStudy_PadsSmallTierWithPlaceholders(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 2, StudyQuizSize: 3}, tierSpec{"top_25", 2})

	s, err := f.uc.StartStudy(context.Background(), "u1")
	if err != nil {
		t.Fatalf("StartStudy error: %v", err)
	}
	q := s.Questions[0]
	want := []string{"top_25word01", "top_25word02", "example", "sample"}
	if len(q.Options) != len(want) {
		t.Fatalf("unexpected options %v", q.Options)
	}
	for i := range want {
		if q.Options[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, q.Options)
		}
	}
}

func TestStartReview_DueOrderAndHints(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 1, ReviewQuizSize: 2}, tierSpec{"top_25", 5})
	makeReady(t, f, "top_25-01", testNow)
	makeReady(t, f, "top_25-02", testNow.AddDate(0, 0, -2))
	makeReady(t, f, "top_25-03", testNow.AddDate(0, 0, -1))
	makeReady(t, f, "top_25-04", testNow.AddDate(0, 0, 1))

	s, err := f.uc.StartReview(context.Background(), "u1", testNow)
	if err != nil {
		t.Fatalf("StartReview error: %v", err)
	}
	if len(s.Questions) != 2 || s.Questions[0].WordID != "top_25-02" || s.Questions[1].WordID != "top_25-03" {
		t.Fatalf("unexpected review order %+v", s.Questions)
	}
	if s.Questions[0].Hint != "t__________2" {
		t.Fatalf("unexpected hint %q", s.Questions[0].Hint)
	}
	if len(s.Questions[0].Options) != 0 {
		t.Fatalf("review questions are typed, got options %v", s.Questions[0].Options)
	}
}

func TestReviewHint(t *testing.T) {
	cases := map[string]string{"a": "a", "of": "of", "cat": "c_t", "mañana": "m____a"}
	for in, want := range cases {
		if got := reviewHint(in); got != want {
			t.Fatalf("reviewHint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSession_ReviewSkipForcesBackToStarted(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 1}, tierSpec{"top_25", 4})
	ctx := context.Background()
	makeReady(t, f, "top_25-01", testNow)
	makeReady(t, f, "top_25-02", testNow)

	s, err := f.uc.StartReview(ctx, "u1", testNow)
	if err != nil {
		t.Fatalf("StartReview error: %v", err)
	}
	if _, err := f.uc.Skip(ctx, s.ID, "top_25-01"); err != nil {
		t.Fatalf("Skip error: %v", err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-02", true); err != nil {
		t.Fatalf("Answer error: %v", err)
	}

	summary, err := f.uc.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	skipped := mustGet(t, f.progress, "u1", "top_25-01")
	if skipped.State != entity.StateStarted || skipped.ReviewStreak != 0 || skipped.NextReviewDate != nil {
		t.Fatalf("skipped word not repaired: %+v", skipped)
	}
	if len(summary.Skipped) != 1 || len(summary.Correct) != 1 || summary.Score != 1 || summary.Accuracy != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Demoted) != 1 || summary.Demoted[0].From != entity.StateReady || summary.Demoted[0].To != entity.StateStarted {
		t.Fatalf("expected ready->started demotion, got %+v", summary.Demoted)
	}
	if len(summary.Promoted) != 1 || summary.Promoted[0].To != entity.StateMastered {
		t.Fatalf("expected one mastery, got %+v", summary.Promoted)
	}

	logs, err := f.uc.History(ctx, "u1", 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one session log, got %v %v", logs, err)
	}
	if logs[0].WordsStudied != 2 || logs[0].CorrectAnswers != 1 || logs[0].WordsPromoted != 1 || logs[0].WordsDemoted != 1 {
		t.Fatalf("unexpected session log %+v", logs[0])
	}

	again, err := f.uc.Complete(ctx, s.ID)
	if err != nil || again != summary {
		t.Fatalf("Complete should be idempotent, got %v %v", again, err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-02", true); !errors.Is(err, entity.ErrSessionCompleted) {
		t.Fatalf("expected ErrSessionCompleted, got %v", err)
	}
}

func TestSession_StudyIncorrectFinalAnswerIsRepaired(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 3, StudyQuizSize: 3}, tierSpec{"top_25", 3})
	ctx := context.Background()

	s, err := f.uc.StartStudy(ctx, "u1")
	if err != nil {
		t.Fatalf("StartStudy error: %v", err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-01", true); err != nil {
		t.Fatalf("Answer error: %v", err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-01", false); err != nil {
		t.Fatalf("Answer error: %v", err)
	}

	summary, err := f.uc.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	rec := mustGet(t, f.progress, "u1", "top_25-01")
	if rec.State != entity.StateStarted || rec.StudyStreak != 0 {
		t.Fatalf("unexpected record %+v", rec)
	}
	// the incorrect answer carries the started->started signal and wins
	if summary.TotalQuestions != 1 || len(summary.Incorrect) != 1 || len(summary.Demoted) != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSession_WriteFailureDoesNotAdvance(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 3, StudyQuizSize: 3}, tierSpec{"top_25", 3})
	ctx := context.Background()

	s, err := f.uc.StartStudy(ctx, "u1")
	if err != nil {
		t.Fatalf("StartStudy error: %v", err)
	}
	f.progress.set(func(p *flakyProgress) { p.failUpserts = true })
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-01", true); err == nil {
		t.Fatalf("expected storage error")
	}
	f.progress.set(func(p *flakyProgress) { p.failUpserts = false })

	summary, err := f.uc.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if summary.TotalQuestions != 0 {
		t.Fatalf("failed answer must not be recorded, got %+v", summary)
	}
}

func TestSession_CompleteRetriesAfterRepairFailure(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 1}, tierSpec{"top_25", 2})
	ctx := context.Background()
	makeReady(t, f, "top_25-01", testNow)

	s, err := f.uc.StartReview(ctx, "u1", testNow)
	if err != nil {
		t.Fatalf("StartReview error: %v", err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-01", false); err != nil {
		t.Fatalf("Answer error: %v", err)
	}

	f.progress.set(func(p *flakyProgress) { p.failUpserts = true })
	if _, err := f.uc.Complete(ctx, s.ID); err == nil {
		t.Fatalf("expected repair failure")
	}
	f.progress.set(func(p *flakyProgress) { p.failUpserts = false })

	summary, err := f.uc.Complete(ctx, s.ID)
	if err != nil {
		t.Fatalf("Complete retry error: %v", err)
	}
	if len(summary.Demoted) != 1 {
		t.Fatalf("expected demotion after retry, got %+v", summary.Demoted)
	}
}

func TestSession_UnknownSessionAndWord(t *testing.T) {
	f := newSessionFixture(t, Settings{PoolCapacity: 2}, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := f.uc.Answer(ctx, "nope", "w", true); !errors.Is(err, entity.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	s, err := f.uc.StartStudy(ctx, "u1")
	if err != nil {
		t.Fatalf("StartStudy error: %v", err)
	}
	if _, err := f.uc.Answer(ctx, s.ID, "top_25-03", true); !errors.Is(err, entity.ErrWordNotInSession) {
		t.Fatalf("expected ErrWordNotInSession, got %v", err)
	}
}

func TestBuildSummary_Dedup(t *testing.T) {
	promo := &entity.Transition{WordID: "a", From: entity.StateStarted, To: entity.StateReady, Correct: true}
	reset := &entity.Transition{WordID: "b", From: entity.StateStarted, To: entity.StateStarted}
	results := []entity.WordResult{
		{WordID: "a", Correct: false},
		{WordID: "a", Correct: true, Transition: promo},
		{WordID: "b", Correct: true},
		{WordID: "b", Correct: false, Transition: reset},
		{WordID: "c", Correct: false},
		{WordID: "c", Correct: true},
		{WordID: "d", Skipped: true},
	}

	s := BuildSummary(results)
	if s.TotalQuestions != 4 {
		t.Fatalf("expected 4 unique words, got %d", s.TotalQuestions)
	}
	if len(s.Correct) != 2 || s.Correct[0].WordID != "a" || s.Correct[1].WordID != "c" {
		t.Fatalf("unexpected correct list %+v", s.Correct)
	}
	if len(s.Incorrect) != 1 || s.Incorrect[0].WordID != "b" {
		t.Fatalf("transition-carrying entry should win for b, got %+v", s.Incorrect)
	}
	if len(s.Skipped) != 1 || len(s.Promoted) != 1 || len(s.Demoted) != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Accuracy != 50 || s.Score != 2 {
		t.Fatalf("unexpected score %d accuracy %d", s.Score, s.Accuracy)
	}
}

func TestBuildSummary_Empty(t *testing.T) {
	s := BuildSummary(nil)
	if s.TotalQuestions != 0 || s.Accuracy != 0 || s.Correct == nil {
		t.Fatalf("unexpected empty summary %+v", s)
	}
}
