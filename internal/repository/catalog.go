package repository

import (
	"context"

	"github.com/eslsoft/wordladder/internal/entity"
)

// CatalogRepository is the read-mostly word catalog. Listings are returned in
// catalog order (Position, then ID).
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*entity.CatalogWord, error)
	ListByTier(ctx context.Context, tier entity.Tier) ([]*entity.CatalogWord, error)
	ListTiers(ctx context.Context) ([]entity.Tier, error)
	ListAll(ctx context.Context) ([]*entity.CatalogWord, error)
	Upsert(ctx context.Context, words []*entity.CatalogWord) (int, error)
}
