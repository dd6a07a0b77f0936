package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/adapter/repository/memory"
	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

func newPoolUnderTest(t *testing.T, capacity int, tiers ...tierSpec) (*poolUsecase, *memory.Progress, *recordingPublisher) {
	t.Helper()
	catalog := buildCatalog(t, tiers...)
	progress := memory.NewProgress(catalog)
	pub := &recordingPublisher{}
	uc := NewPoolUsecase(progress, catalog, pub, Settings{PoolCapacity: capacity}, quietLogger()).(*poolUsecase)
	uc.clock = fixedClock(testNow)
	return uc, progress, pub
}

func activeIDs(t *testing.T, uc PoolUsecase, userID string) []string {
	t.Helper()
	active, err := uc.ActivePool(context.Background(), userID)
	if err != nil {
		t.Fatalf("ActivePool error: %v", err)
	}
	ids := make([]string, 0, len(active))
	for _, rec := range active {
		ids = append(ids, rec.WordID)
	}
	return ids
}

func TestPool_InitializeNewUserFillsFromFirstTier(t *testing.T) {
	uc, _, _ := newPoolUnderTest(t, 3, tierSpec{"top_25", 5}, tierSpec{"top_50", 5})
	ctx := context.Background()

	added, err := uc.InitializeNewUser(ctx, "u1")
	if err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 words, got %d", len(added))
	}
	for i, want := range []string{"top_25-01", "top_25-02", "top_25-03"} {
		if added[i].WordID != want || added[i].State != entity.StateStarted || added[i].NextReviewDate != nil {
			t.Fatalf("unexpected record %d: %+v", i, added[i])
		}
	}

	again, err := uc.InitializeNewUser(ctx, "u1")
	if err != nil {
		t.Fatalf("second InitializeNewUser error: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no-op on non-empty pool, got %d", len(again))
	}
}

func TestPool_InitializeNewUserRejectsBlankUser(t *testing.T) {
	uc, _, _ := newPoolUnderTest(t, 3, tierSpec{"top_25", 5})
	if _, err := uc.InitializeNewUser(context.Background(), "  "); !errors.Is(err, entity.ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestPool_MasteryBackfillsOneWord(t *testing.T) {
	uc, progress, _ := newPoolUnderTest(t, 3, tierSpec{"top_25", 5})
	ctx := context.Background()
	if _, err := uc.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}

	rec := mustGet(t, progress, "u1", "top_25-02")
	rec.State = entity.StateMastered
	seedRecord(t, progress, rec)

	outcome, err := uc.HandleWordMastery(ctx, "u1", "top_25-02")
	if err != nil {
		t.Fatalf("HandleWordMastery error: %v", err)
	}
	if len(outcome.Added) != 1 || outcome.Added[0].WordID != "top_25-04" {
		t.Fatalf("expected top_25-04 backfilled, got %+v", outcome.Added)
	}
	if outcome.Unlocked != nil {
		t.Fatalf("tier is not complete, got unlock %+v", outcome.Unlocked)
	}
	if ids := activeIDs(t, uc, "u1"); len(ids) != 3 {
		t.Fatalf("expected pool size 3, got %v", ids)
	}
}

func TestPool_RefillNeverReaddsExistingRecords(t *testing.T) {
	uc, progress, _ := newPoolUnderTest(t, 3, tierSpec{"top_25", 4})
	ctx := context.Background()

	ready := entity.NewStartedRecord("u1", "top_25-01", testNow)
	ready.State = entity.StateReady
	ready.NextReviewDate = dayPtr(testNow)
	seedRecord(t, progress, ready)
	mastered := entity.NewStartedRecord("u1", "top_25-02", testNow)
	mastered.State = entity.StateMastered
	seedRecord(t, progress, mastered)

	added, err := uc.RefillPool(ctx, "u1")
	if err != nil {
		t.Fatalf("RefillPool error: %v", err)
	}
	if len(added) != 2 || added[0].WordID != "top_25-03" || added[1].WordID != "top_25-04" {
		t.Fatalf("unexpected refill %+v", added)
	}
	if got := mustGet(t, progress, "u1", "top_25-01"); got.State != entity.StateReady {
		t.Fatalf("existing ready record overwritten: %+v", got)
	}

	// shortfall is not an error
	more, err := uc.RefillPool(ctx, "u1")
	if err != nil || len(more) != 0 {
		t.Fatalf("expected empty refill, got %v %v", more, err)
	}
}

func TestPool_TierUnlockOnCompletion(t *testing.T) {
	uc, progress, pub := newPoolUnderTest(t, 2, tierSpec{"top_25", 2}, tierSpec{"top_50", 3})
	ctx := context.Background()
	if _, err := uc.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}

	tiers, err := uc.ActiveTiers(ctx, "u1")
	if err != nil || len(tiers) != 1 || tiers[0] != "top_25" {
		t.Fatalf("expected only top_25 eligible, got %v %v", tiers, err)
	}

	for _, id := range []string{"top_25-01", "top_25-02"} {
		rec := mustGet(t, progress, "u1", id)
		rec.State = entity.StateMastered
		seedRecord(t, progress, rec)
	}

	outcome, err := uc.HandleWordMastery(ctx, "u1", "top_25-02")
	if err != nil {
		t.Fatalf("HandleWordMastery error: %v", err)
	}
	if outcome.Unlocked == nil || outcome.Unlocked.PreviousTier != "top_25" || outcome.Unlocked.NewTier != "top_50" {
		t.Fatalf("expected top_25 -> top_50 unlock, got %+v", outcome.Unlocked)
	}
	if len(outcome.Added) != 2 || outcome.Added[0].WordID != "top_50-01" {
		t.Fatalf("expected refill from top_50, got %+v", outcome.Added)
	}
	if len(pub.unlocks) != 1 {
		t.Fatalf("expected one published unlock, got %d", len(pub.unlocks))
	}

	statuses, err := uc.TierStatuses(ctx, "u1")
	if err != nil {
		t.Fatalf("TierStatuses error: %v", err)
	}
	if !statuses[0].Complete() || statuses[0].Mastered != 2 || !statuses[1].Eligible || statuses[1].Total != 3 {
		t.Fatalf("unexpected statuses %+v", statuses)
	}
}

func TestPool_LastTierCompletionUnlocksNothing(t *testing.T) {
	uc, progress, _ := newPoolUnderTest(t, 1, tierSpec{"top_25", 1})
	ctx := context.Background()
	rec := entity.NewStartedRecord("u1", "top_25-01", testNow)
	rec.State = entity.StateMastered
	seedRecord(t, progress, rec)

	outcome, err := uc.HandleWordMastery(ctx, "u1", "top_25-01")
	if err != nil {
		t.Fatalf("HandleWordMastery error: %v", err)
	}
	if outcome.Unlocked != nil || len(outcome.Added) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestPool_AddToActivePoolIsIdempotent(t *testing.T) {
	uc, progress, _ := newPoolUnderTest(t, 1, tierSpec{"top_25", 3})
	ctx := context.Background()

	rec := entity.NewStartedRecord("u1", "top_25-03", testNow)
	rec.State = entity.StateReady
	rec.ReviewStreak = 2
	rec.ReviewInterval = 7
	rec.NextReviewDate = dayPtr(testNow)
	seedRecord(t, progress, rec)

	for i := 0; i < 2; i++ {
		got, err := uc.AddToActivePool(ctx, "u1", "top_25-03")
		if err != nil {
			t.Fatalf("AddToActivePool error: %v", err)
		}
		if got.State != entity.StateStarted || got.StudyStreak != 0 || got.ReviewStreak != 0 || got.NextReviewDate != nil {
			t.Fatalf("unexpected record %+v", got)
		}
		if got.ReviewInterval != 7 {
			t.Fatalf("manual add must not touch the interval, got %d", got.ReviewInterval)
		}
	}

	items, total, err := progress.List(ctx, &repository.ListProgressQuery{UserID: "u1"})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("expected a single record, got %d (%v)", total, err)
	}

	if _, err := uc.AddToActivePool(ctx, "u1", "missing"); !errors.Is(err, entity.ErrWordNotFound) {
		t.Fatalf("expected ErrWordNotFound, got %v", err)
	}
}

func TestPool_AddToActivePoolIgnoresCapacity(t *testing.T) {
	uc, _, _ := newPoolUnderTest(t, 1, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := uc.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}
	if _, err := uc.AddToActivePool(ctx, "u1", "top_25-03"); err != nil {
		t.Fatalf("AddToActivePool error: %v", err)
	}
	if ids := activeIDs(t, uc, "u1"); len(ids) != 2 {
		t.Fatalf("expected 2 active words over capacity, got %v", ids)
	}
}

func TestPool_RemoveFromActivePool(t *testing.T) {
	uc, progress, _ := newPoolUnderTest(t, 2, tierSpec{"top_25", 3})
	ctx := context.Background()
	if _, err := uc.InitializeNewUser(ctx, "u1"); err != nil {
		t.Fatalf("InitializeNewUser error: %v", err)
	}

	if err := uc.RemoveFromActivePool(ctx, "u1", "top_25-01"); err != nil {
		t.Fatalf("RemoveFromActivePool error: %v", err)
	}
	if _, err := progress.Get(ctx, "u1", "top_25-01"); !errors.Is(err, entity.ErrProgressNotFound) {
		t.Fatalf("expected record deleted, got %v", err)
	}

	rec := mustGet(t, progress, "u1", "top_25-02")
	rec.State = entity.StateReady
	rec.NextReviewDate = dayPtr(testNow)
	seedRecord(t, progress, rec)
	if err := uc.RemoveFromActivePool(ctx, "u1", "top_25-02"); !errors.Is(err, entity.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for ready word, got %v", err)
	}
	if err := uc.RemoveFromActivePool(ctx, "u1", "top_25-01"); !errors.Is(err, entity.ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound, got %v", err)
	}
}

func TestPool_RefillSurfacesStorageErrors(t *testing.T) {
	catalog := buildCatalog(t, tierSpec{"top_25", 3})
	flaky := &flakyProgress{ProgressRepository: memory.NewProgress(catalog), failUpserts: true}
	uc := NewPoolUsecase(flaky, catalog, nil, Settings{PoolCapacity: 2}, quietLogger())

	_, err := uc.RefillPool(context.Background(), "u1")
	var storageErr *entity.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got %v", err)
	}

	flaky.set(func(f *flakyProgress) { f.failUpserts = false })
	added, err := uc.RefillPool(context.Background(), "u1")
	if err != nil || len(added) != 2 {
		t.Fatalf("retry should fill the pool, got %d %v", len(added), err)
	}
}

func TestPool_MasteryRefillsWhenWordLookupFails(t *testing.T) {
	catalog := buildCatalog(t, tierSpec{"top_25", 4})
	progress := memory.NewProgress(catalog)
	logger, hook := capturingLogger()
	uc := NewPoolUsecase(progress, lookupFailingCatalog{catalog}, nil, Settings{PoolCapacity: 2}, logger)

	rec := entity.NewStartedRecord("u1", "top_25-01", testNow)
	rec.State = entity.StateMastered
	seedRecord(t, progress, rec)

	outcome, err := uc.HandleWordMastery(context.Background(), "u1", "top_25-01")
	if err != nil {
		t.Fatalf("HandleWordMastery error: %v", err)
	}
	if outcome.Unlocked != nil {
		t.Fatalf("unlock cannot be resolved without the word, got %+v", outcome.Unlocked)
	}
	if len(outcome.Added) != 2 || outcome.Added[0].WordID != "top_25-02" {
		t.Fatalf("expected refill despite lookup failure, got %+v", outcome.Added)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["word_id"] != "top_25-01" {
		t.Fatalf("expected lookup failure logged, got %+v", entry)
	}
}

func TestPool_UnlockPublishFailureIsLogged(t *testing.T) {
	catalog := buildCatalog(t, tierSpec{"top_25", 1}, tierSpec{"top_50", 2})
	progress := memory.NewProgress(catalog)
	logger, hook := capturingLogger()
	uc := NewPoolUsecase(progress, catalog, failingPublisher{}, Settings{PoolCapacity: 2}, logger)

	rec := entity.NewStartedRecord("u1", "top_25-01", testNow)
	rec.State = entity.StateMastered
	seedRecord(t, progress, rec)

	outcome, err := uc.HandleWordMastery(context.Background(), "u1", "top_25-01")
	if err != nil {
		t.Fatalf("publish failure must not fail mastery: %v", err)
	}
	if outcome.Unlocked == nil || len(outcome.Added) != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.DebugLevel || entry.Message != "publish tier unlock" || entry.Data[logrus.ErrorKey] != errBoom {
		t.Fatalf("expected debug log for publish failure, got %+v", entry)
	}
}

func TestPool_UnlockSkippedWhenNextTierAlreadyTracked(t *testing.T) {
	uc, progress, pub := newPoolUnderTest(t, 1, tierSpec{"top_25", 1}, tierSpec{"top_50", 2})
	ctx := context.Background()

	rec := entity.NewStartedRecord("u1", "top_25-01", testNow)
	rec.State = entity.StateMastered
	seedRecord(t, progress, rec)
	seedRecord(t, progress, entity.NewStartedRecord("u1", "top_50-01", testNow))

	outcome, err := uc.HandleWordMastery(ctx, "u1", "top_25-01")
	if err != nil {
		t.Fatalf("HandleWordMastery error: %v", err)
	}
	if outcome.Unlocked != nil || len(pub.unlocks) != 0 {
		t.Fatalf("next tier already in play, got %+v (%d published)", outcome.Unlocked, len(pub.unlocks))
	}
}
