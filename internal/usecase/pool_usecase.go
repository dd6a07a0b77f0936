package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

// Settings holds the learning knobs shared by the pool manager and sessions.
type Settings struct {
	PoolCapacity   int
	StudyQuizSize  int
	ReviewQuizSize int
}

// DefaultSettings mirrors the values used by the original web client.
func DefaultSettings() Settings {
	return Settings{
		PoolCapacity:   15,
		StudyQuizSize:  3,
		ReviewQuizSize: 10,
	}
}

func (s Settings) normalized() Settings {
	def := DefaultSettings()
	if s.PoolCapacity <= 0 {
		s.PoolCapacity = def.PoolCapacity
	}
	if s.StudyQuizSize <= 0 {
		s.StudyQuizSize = def.StudyQuizSize
	}
	if s.ReviewQuizSize <= 0 {
		s.ReviewQuizSize = def.ReviewQuizSize
	}
	return s
}

// MasteryOutcome reports the side effects of a word reaching mastered.
type MasteryOutcome struct {
	Added    []*entity.ProgressRecord `json:"added"`
	Unlocked *entity.TierUnlock       `json:"unlocked,omitempty"`
}

// PoolUsecase maintains the bounded active pool of started words.
type PoolUsecase interface {
	InitializeNewUser(ctx context.Context, userID string) ([]*entity.ProgressRecord, error)
	RefillPool(ctx context.Context, userID string) ([]*entity.ProgressRecord, error)
	HandleWordMastery(ctx context.Context, userID, wordID string) (*MasteryOutcome, error)
	ActivePool(ctx context.Context, userID string) ([]*entity.ProgressRecord, error)
	ActiveTiers(ctx context.Context, userID string) ([]entity.Tier, error)
	TierStatuses(ctx context.Context, userID string) ([]entity.TierStatus, error)
	AddToActivePool(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error)
	RemoveFromActivePool(ctx context.Context, userID, wordID string) error
}

// NewPoolUsecase wires the pool manager with its collaborators.
func NewPoolUsecase(progress repository.ProgressRepository, catalog repository.CatalogRepository, publisher EventPublisher, settings Settings, logger logrus.FieldLogger) PoolUsecase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &poolUsecase{
		progress:  progress,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		capacity:  settings.normalized().PoolCapacity,
		clock:     time.Now,
	}
}

type poolUsecase struct {
	progress  repository.ProgressRepository
	catalog   repository.CatalogRepository
	publisher EventPublisher
	logger    logrus.FieldLogger
	capacity  int
	clock     func() time.Time
}

// tierView pairs a tier's status with its words in catalog order.
type tierView struct {
	status entity.TierStatus
	words  []*entity.CatalogWord
}

func (u *poolUsecase) InitializeNewUser(ctx context.Context, userID string) ([]*entity.ProgressRecord, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	active, err := repository.ListByState(ctx, u.progress, userID, entity.StateStarted, repository.OrderByLastStudied)
	if err != nil {
		return nil, entity.NewStorageError("list active pool", err)
	}
	if len(active) > 0 {
		return nil, nil
	}
	return u.RefillPool(ctx, userID)
}

func (u *poolUsecase) RefillPool(ctx context.Context, userID string) ([]*entity.ProgressRecord, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	records, err := u.allRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := u.tierViews(ctx, records)
	if err != nil {
		return nil, err
	}
	return u.refill(ctx, userID, records, views)
}

func (u *poolUsecase) HandleWordMastery(ctx context.Context, userID, wordID string) (*MasteryOutcome, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	records, err := u.allRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := u.tierViews(ctx, records)
	if err != nil {
		return nil, err
	}

	outcome := &MasteryOutcome{}
	if wordID = entity.NormalizeID(wordID); wordID != "" {
		// A catalog miss only costs the unlock report; the refill still runs.
		word, err := u.catalog.GetByID(ctx, wordID)
		if err != nil {
			u.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"word_id": wordID,
			}).Warn("resolve tier of mastered word")
		} else {
			outcome.Unlocked = unlockedBy(views, records, word.Tier)
		}
	}

	added, err := u.refill(ctx, userID, records, views)
	outcome.Added = added
	if err != nil {
		return outcome, err
	}

	if outcome.Unlocked != nil {
		if err := u.publisher.PublishTierUnlock(ctx, userID, *outcome.Unlocked); err != nil {
			u.logger.WithError(err).WithField("user_id", userID).Debug("publish tier unlock")
		}
	}
	return outcome, nil
}

func (u *poolUsecase) ActivePool(ctx context.Context, userID string) ([]*entity.ProgressRecord, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	items, err := repository.ListByState(ctx, u.progress, userID, entity.StateStarted, repository.OrderByLastStudied)
	if err != nil {
		return nil, entity.NewStorageError("list active pool", err)
	}
	return items, nil
}

func (u *poolUsecase) ActiveTiers(ctx context.Context, userID string) ([]entity.Tier, error) {
	statuses, err := u.TierStatuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	eligible := lo.Filter(statuses, func(s entity.TierStatus, _ int) bool { return s.Eligible })
	return lo.Map(eligible, func(s entity.TierStatus, _ int) entity.Tier { return s.Tier }), nil
}

func (u *poolUsecase) TierStatuses(ctx context.Context, userID string) ([]entity.TierStatus, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	records, err := u.allRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := u.tierViews(ctx, records)
	if err != nil {
		return nil, err
	}
	return lo.Map(views, func(v tierView, _ int) entity.TierStatus { return v.status }), nil
}

func (u *poolUsecase) AddToActivePool(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error) {
	userID = entity.NormalizeID(userID)
	wordID = entity.NormalizeID(wordID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	if wordID == "" {
		return nil, entity.ErrInvalidWordID
	}
	if _, err := u.catalog.GetByID(ctx, wordID); err != nil {
		return nil, entity.NewCatalogError("get word", err)
	}

	now := u.clock()
	record, err := u.progress.Get(ctx, userID, wordID)
	switch {
	case errors.Is(err, entity.ErrProgressNotFound):
		record = entity.NewStartedRecord(userID, wordID, now)
	case err != nil:
		return nil, entity.NewStorageError("get progress", err)
	default:
		record.ResetToStarted(now)
	}
	record.Normalize(now)

	saved, err := u.progress.Upsert(ctx, record)
	if err != nil {
		return nil, entity.NewStorageError("upsert progress", err)
	}
	return saved, nil
}

func (u *poolUsecase) RemoveFromActivePool(ctx context.Context, userID, wordID string) error {
	userID = entity.NormalizeID(userID)
	wordID = entity.NormalizeID(wordID)
	if userID == "" {
		return entity.ErrInvalidUserID
	}
	if wordID == "" {
		return entity.ErrInvalidWordID
	}
	record, err := u.progress.Get(ctx, userID, wordID)
	if err != nil {
		return entity.NewStorageError("get progress", err)
	}
	if record.State != entity.StateStarted {
		return entity.ErrInvalidState
	}
	if err := u.progress.Delete(ctx, userID, wordID); err != nil {
		return entity.NewStorageError("delete progress", err)
	}
	return nil
}

func (u *poolUsecase) allRecords(ctx context.Context, userID string) ([]*entity.ProgressRecord, error) {
	items, _, err := u.progress.List(ctx, &repository.ListProgressQuery{
		UserID:       userID,
		PrimaryKey:   string(repository.OrderByWordID),
		SecondaryKey: string(repository.OrderByLastStudied),
	})
	if err != nil {
		return nil, entity.NewStorageError("list progress", err)
	}
	return items, nil
}

// tierViews derives tier eligibility from the user's records: the first tier
// is always eligible, every later tier once its predecessor is fully mastered.
func (u *poolUsecase) tierViews(ctx context.Context, records []*entity.ProgressRecord) ([]tierView, error) {
	tiers, err := u.catalog.ListTiers(ctx)
	if err != nil {
		return nil, entity.NewCatalogError("list tiers", err)
	}

	mastered := lo.SliceToMap(
		lo.Filter(records, func(r *entity.ProgressRecord, _ int) bool { return r.State == entity.StateMastered }),
		func(r *entity.ProgressRecord) (string, struct{}) { return r.WordID, struct{}{} },
	)

	views := make([]tierView, 0, len(tiers))
	for i, tier := range tiers {
		words, err := u.catalog.ListByTier(ctx, tier)
		if err != nil {
			return nil, entity.NewCatalogError("list tier words", err)
		}
		status := entity.TierStatus{
			Tier:  tier,
			Total: len(words),
			Mastered: lo.CountBy(words, func(w *entity.CatalogWord) bool {
				_, ok := mastered[w.ID]
				return ok
			}),
			Eligible: i == 0 || views[i-1].status.Complete(),
		}
		views = append(views, tierView{status: status, words: words})
	}
	return views, nil
}

func (u *poolUsecase) refill(ctx context.Context, userID string, records []*entity.ProgressRecord, views []tierView) ([]*entity.ProgressRecord, error) {
	active := lo.CountBy(records, func(r *entity.ProgressRecord) bool { return r.State == entity.StateStarted })
	need := u.capacity - active
	if need <= 0 {
		return nil, nil
	}

	candidates := selectCandidates(views, records, need)
	now := u.clock()
	added := make([]*entity.ProgressRecord, 0, len(candidates))
	for _, word := range candidates {
		record := entity.NewStartedRecord(userID, word.ID, now)
		record.Normalize(now)
		saved, err := u.progress.Upsert(ctx, record)
		if err != nil {
			return added, entity.NewStorageError("upsert progress", err)
		}
		added = append(added, saved)
	}
	return added, nil
}

// selectCandidates walks eligible tiers lowest first, in catalog order, and
// picks words that have no progress record of any state.
func selectCandidates(views []tierView, records []*entity.ProgressRecord, need int) []*entity.CatalogWord {
	assigned := lo.SliceToMap(records, func(r *entity.ProgressRecord) (string, struct{}) { return r.WordID, struct{}{} })
	picked := make([]*entity.CatalogWord, 0, need)
	for _, view := range views {
		if !view.status.Eligible {
			continue
		}
		for _, word := range view.words {
			if len(picked) >= need {
				return picked
			}
			if _, ok := assigned[word.ID]; ok {
				continue
			}
			assigned[word.ID] = struct{}{}
			picked = append(picked, word)
		}
	}
	return picked
}

// unlockedBy reports the unlock caused by tier becoming fully mastered. The
// next tier counts as newly unlocked only while none of its words has a
// record, so mastering a word again after a put-back stays silent.
func unlockedBy(views []tierView, records []*entity.ProgressRecord, tier entity.Tier) *entity.TierUnlock {
	for i, view := range views {
		if view.status.Tier != tier {
			continue
		}
		if !view.status.Complete() || i+1 >= len(views) {
			return nil
		}
		next := views[i+1]
		tracked := lo.SliceToMap(records, func(r *entity.ProgressRecord) (string, struct{}) { return r.WordID, struct{}{} })
		if lo.ContainsBy(next.words, func(w *entity.CatalogWord) bool {
			_, ok := tracked[w.ID]
			return ok
		}) {
			return nil
		}
		return &entity.TierUnlock{PreviousTier: tier, NewTier: next.status.Tier}
	}
	return nil
}
