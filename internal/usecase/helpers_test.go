package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/eslsoft/wordladder/internal/adapter/repository/memory"
	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

var testNow = time.Date(2025, 5, 10, 15, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

type tierSpec struct {
	tier string
	size int
}

// buildCatalog lays tiers out in the given order with stable positions.
func buildCatalog(t *testing.T, tiers ...tierSpec) *memory.Catalog {
	t.Helper()
	var words []*entity.CatalogWord
	pos := 0
	for _, spec := range tiers {
		for i := 1; i <= spec.size; i++ {
			pos++
			words = append(words, &entity.CatalogWord{
				ID:         fmt.Sprintf("%s-%02d", spec.tier, i),
				Text:       fmt.Sprintf("%sword%02d", spec.tier, i),
				Definition: fmt.Sprintf("definition %d of %s", i, spec.tier),
				Tier:       entity.Tier(spec.tier),
				Position:   pos,
			})
		}
	}
	return memory.NewCatalog(words...)
}

func seedRecord(t *testing.T, repo repository.ProgressRepository, rec *entity.ProgressRecord) {
	t.Helper()
	rec.Normalize(testNow)
	if _, err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("seed %s: %v", rec.WordID, err)
	}
}

func mustGet(t *testing.T, repo repository.ProgressRepository, userID, wordID string) *entity.ProgressRecord {
	t.Helper()
	rec, err := repo.Get(context.Background(), userID, wordID)
	if err != nil {
		t.Fatalf("get %s/%s: %v", userID, wordID, err)
	}
	return rec
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// capturingLogger records entries at every level without printing them.
func capturingLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func dayPtr(t time.Time) *time.Time {
	d := entity.Day(t)
	return &d
}

var errBoom = errors.New("boom")

// flakyProgress fails writes for selected words while failUpserts is set.
type flakyProgress struct {
	repository.ProgressRepository

	mu          sync.Mutex
	failUpserts bool
	failWordIDs map[string]bool
	failLists   bool
}

func (f *flakyProgress) Upsert(ctx context.Context, rec *entity.ProgressRecord) (*entity.ProgressRecord, error) {
	f.mu.Lock()
	fail := f.failUpserts && (len(f.failWordIDs) == 0 || f.failWordIDs[rec.WordID])
	f.mu.Unlock()
	if fail {
		return nil, errBoom
	}
	return f.ProgressRepository.Upsert(ctx, rec)
}

func (f *flakyProgress) List(ctx context.Context, q *repository.ListProgressQuery) ([]*entity.ProgressRecord, int64, error) {
	f.mu.Lock()
	fail := f.failLists
	f.mu.Unlock()
	if fail {
		return nil, 0, errBoom
	}
	return f.ProgressRepository.List(ctx, q)
}

func (f *flakyProgress) set(fn func(*flakyProgress)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu          sync.Mutex
	transitions []entity.Transition
	unlocks     []entity.TierUnlock
}

func (p *recordingPublisher) PublishTransition(_ context.Context, _ string, tr entity.Transition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, tr)
	return nil
}

func (p *recordingPublisher) PublishTierUnlock(_ context.Context, _ string, u entity.TierUnlock) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unlocks = append(p.unlocks, u)
	return nil
}

// failingPublisher rejects every event.
type failingPublisher struct{}

func (failingPublisher) PublishTransition(context.Context, string, entity.Transition) error {
	return errBoom
}

func (failingPublisher) PublishTierUnlock(context.Context, string, entity.TierUnlock) error {
	return errBoom
}

// lookupFailingCatalog fails single-word lookups but still serves tier listings.
type lookupFailingCatalog struct {
	repository.CatalogRepository
}

func (lookupFailingCatalog) GetByID(context.Context, string) (*entity.CatalogWord, error) {
	return nil, errBoom
}
