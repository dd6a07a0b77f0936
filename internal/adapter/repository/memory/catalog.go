// Package memory holds map-backed repositories used for guest mode, local
// runs without a database, and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

// Catalog is an in-memory word catalog.
type Catalog struct {
	mu    sync.RWMutex
	words map[string]*entity.CatalogWord
	clock func() time.Time
}

var _ repository.CatalogRepository = (*Catalog)(nil)

func NewCatalog(words ...*entity.CatalogWord) *Catalog {
	c := &Catalog{words: make(map[string]*entity.CatalogWord), clock: time.Now}
	if len(words) > 0 {
		_, _ = c.Upsert(context.Background(), words)
	}
	return c
}

func (c *Catalog) GetByID(ctx context.Context, id string) (*entity.CatalogWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.words[entity.NormalizeID(id)]
	if !ok {
		return nil, entity.ErrWordNotFound
	}
	clone := *w
	return &clone, nil
}

func (c *Catalog) ListByTier(ctx context.Context, tier entity.Tier) ([]*entity.CatalogWord, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.CatalogWord, 0)
	for _, w := range all {
		if w.Tier == tier {
			out = append(out, w)
		}
	}
	return out, nil
}

// ListTiers orders tiers by the catalog position of their first word.
func (c *Catalog) ListTiers(ctx context.Context) ([]entity.Tier, error) {
	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[entity.Tier]struct{})
	tiers := make([]entity.Tier, 0)
	for _, w := range all {
		if _, ok := seen[w.Tier]; ok {
			continue
		}
		seen[w.Tier] = struct{}{}
		tiers = append(tiers, w.Tier)
	}
	return tiers, nil
}

func (c *Catalog) ListAll(ctx context.Context) ([]*entity.CatalogWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	out := make([]*entity.CatalogWord, 0, len(c.words))
	for _, w := range c.words {
		clone := *w
		out = append(out, &clone)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *Catalog) Upsert(ctx context.Context, words []*entity.CatalogWord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range words {
		if w == nil {
			continue
		}
		clone := *w
		if existing, ok := c.words[entity.NormalizeID(clone.ID)]; ok {
			clone.CreatedAt = existing.CreatedAt
		}
		if err := clone.Normalize(now); err != nil {
			return n, err
		}
		c.words[clone.ID] = &clone
		n++
	}
	return n, nil
}
