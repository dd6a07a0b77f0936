package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

type progressKey struct {
	userID string
	wordID string
}

// Progress is an in-memory Progress Store. Tier filters are resolved through
// the catalog it was built with.
type Progress struct {
	mu      sync.RWMutex
	records map[progressKey]*entity.ProgressRecord
	catalog repository.CatalogRepository
}

var _ repository.ProgressRepository = (*Progress)(nil)

func NewProgress(catalog repository.CatalogRepository) *Progress {
	return &Progress{
		records: make(map[progressKey]*entity.ProgressRecord),
		catalog: catalog,
	}
}

func (p *Progress) Get(ctx context.Context, userID, wordID string) (*entity.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.records[progressKey{userID, wordID}]
	if !ok {
		return nil, entity.ErrProgressNotFound
	}
	return rec.Clone(), nil
}

func (p *Progress) Upsert(ctx context.Context, record *entity.ProgressRecord) (*entity.ProgressRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, entity.ErrProgressNotFound
	}
	clone := record.Clone()
	key := progressKey{clone.UserID, clone.WordID}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.records[key]; ok && !existing.CreatedAt.IsZero() {
		clone.CreatedAt = existing.CreatedAt
	}
	p.records[key] = clone
	return clone.Clone(), nil
}

func (p *Progress) Delete(ctx context.Context, userID, wordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	key := progressKey{userID, wordID}
	if _, ok := p.records[key]; !ok {
		return entity.ErrProgressNotFound
	}
	delete(p.records, key)
	return nil
}

func (p *Progress) List(ctx context.Context, query *repository.ListProgressQuery) ([]*entity.ProgressRecord, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if query == nil {
		query = &repository.ListProgressQuery{}
	}

	var tierWords map[string]struct{}
	if len(query.Tiers) > 0 {
		if p.catalog == nil {
			return nil, 0, entity.NewCatalogError("tier filter", entity.ErrWordNotFound)
		}
		tierWords = make(map[string]struct{})
		for _, tier := range query.Tiers {
			words, err := p.catalog.ListByTier(ctx, entity.Tier(tier))
			if err != nil {
				return nil, 0, err
			}
			for _, w := range words {
				tierWords[w.ID] = struct{}{}
			}
		}
	}

	p.mu.RLock()
	items := make([]*entity.ProgressRecord, 0)
	for _, rec := range p.records {
		if matches(rec, query, tierWords) {
			items = append(items, rec.Clone())
		}
	}
	p.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		if c := compareBy(items[i], items[j], query.PrimaryKey, query.PrimaryDesc); c != 0 {
			return c < 0
		}
		if c := compareBy(items[i], items[j], query.SecondaryKey, query.SecondaryDesc); c != 0 {
			return c < 0
		}
		if c := compareBy(items[i], items[j], string(repository.OrderByWordID), false); c != 0 {
			return c < 0
		}
		return items[i].UserID < items[j].UserID
	})

	total := int64(len(items))
	if query.PageSize > 0 {
		offset := int(query.Offset())
		if offset >= len(items) {
			return []*entity.ProgressRecord{}, total, nil
		}
		end := min(offset+int(query.PageSize), len(items))
		items = items[offset:end]
	}
	return items, total, nil
}

func (p *Progress) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	ids := make([]string, 0)
	for key := range p.records {
		ids = append(ids, key.userID)
	}
	p.mu.RUnlock()
	ids = lo.Uniq(ids)
	sort.Strings(ids)
	return ids, nil
}

func matches(rec *entity.ProgressRecord, q *repository.ListProgressQuery, tierWords map[string]struct{}) bool {
	if q.UserID != "" && rec.UserID != q.UserID {
		return false
	}
	if len(q.States) > 0 && !lo.Contains(q.States, string(rec.State)) {
		return false
	}
	if len(q.WordIDs) > 0 && !lo.Contains(q.WordIDs, rec.WordID) {
		return false
	}
	if tierWords != nil {
		if _, ok := tierWords[rec.WordID]; !ok {
			return false
		}
	}
	if q.DueOnOrBefore != nil && !entity.DueOn(rec.NextReviewDate, *q.DueOnOrBefore) {
		return false
	}
	if q.MinStudyStreak != nil && rec.StudyStreak < *q.MinStudyStreak {
		return false
	}
	if q.MinReviewStreak != nil && rec.ReviewStreak < *q.MinReviewStreak {
		return false
	}
	return true
}

// compareBy orders by key; nil timestamps always sort last.
func compareBy(a, b *entity.ProgressRecord, key string, desc bool) int {
	var c int
	switch repository.ProgressOrder(key) {
	case repository.OrderByWordID:
		c = strings.Compare(a.WordID, b.WordID)
	case repository.OrderByNextReviewDate:
		return compareTimes(a.NextReviewDate, b.NextReviewDate, desc)
	case repository.OrderByLastStudied:
		return compareTimes(a.LastStudied, b.LastStudied, desc)
	case repository.OrderByStudyStreak:
		c = a.StudyStreak - b.StudyStreak
	case repository.OrderByReviewStreak:
		c = a.ReviewStreak - b.ReviewStreak
	default:
		return 0
	}
	if desc {
		return -c
	}
	return c
}

func compareTimes(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := a.Compare(*b)
	if desc {
		return -c
	}
	return c
}
