package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

const wordColumns = `id, text, definition, part_of_speech, tier, difficulty, position,
	example_sentence, created_at, updated_at`

type wordRow struct {
	ID              string    `db:"id"`
	Text            string    `db:"text"`
	Definition      string    `db:"definition"`
	PartOfSpeech    string    `db:"part_of_speech"`
	Tier            string    `db:"tier"`
	Difficulty      string    `db:"difficulty"`
	Position        int       `db:"position"`
	ExampleSentence string    `db:"example_sentence"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r wordRow) toEntity() *entity.CatalogWord {
	return &entity.CatalogWord{
		ID:              r.ID,
		Text:            r.Text,
		Definition:      r.Definition,
		PartOfSpeech:    r.PartOfSpeech,
		Tier:            entity.Tier(r.Tier),
		Difficulty:      entity.Difficulty(r.Difficulty),
		Position:        r.Position,
		ExampleSentence: r.ExampleSentence,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

// CatalogRepository reads and imports the word catalog.
type CatalogRepository struct {
	db    *sqlx.DB
	clock func() time.Time
}

var _ repository.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db, clock: time.Now}
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*entity.CatalogWord, error) {
	var row wordRow
	query := r.db.Rebind(`SELECT ` + wordColumns + ` FROM words WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, entity.NormalizeID(id)); err != nil {
		return nil, translateError(err, entity.ErrWordNotFound)
	}
	return row.toEntity(), nil
}

func (r *CatalogRepository) ListByTier(ctx context.Context, tier entity.Tier) ([]*entity.CatalogWord, error) {
	query := r.db.Rebind(`SELECT ` + wordColumns + ` FROM words WHERE tier = ? ORDER BY position, id`)
	return r.selectWords(ctx, query, string(tier))
}

func (r *CatalogRepository) ListAll(ctx context.Context) ([]*entity.CatalogWord, error) {
	return r.selectWords(ctx, `SELECT `+wordColumns+` FROM words ORDER BY position, id`)
}

// ListTiers orders tiers by the position of their first word.
func (r *CatalogRepository) ListTiers(ctx context.Context) ([]entity.Tier, error) {
	var tiers []string
	query := `SELECT tier FROM words GROUP BY tier ORDER BY MIN(position), MIN(id)`
	if err := r.db.SelectContext(ctx, &tiers, query); err != nil {
		return nil, translateError(err, nil)
	}
	out := make([]entity.Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, entity.Tier(t))
	}
	return out, nil
}

// Upsert writes every word in one transaction and reports how many were stored.
func (r *CatalogRepository) Upsert(ctx context.Context, words []*entity.CatalogWord) (int, error) {
	const stmt = `INSERT INTO words (` + wordColumns + `)
		VALUES (:id, :text, :definition, :part_of_speech, :tier, :difficulty, :position,
			:example_sentence, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			text = excluded.text,
			definition = excluded.definition,
			part_of_speech = excluded.part_of_speech,
			tier = excluded.tier,
			difficulty = excluded.difficulty,
			position = excluded.position,
			example_sentence = excluded.example_sentence,
			updated_at = excluded.updated_at`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, translateError(err, nil)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.clock().UTC()
	n := 0
	for _, w := range words {
		if w == nil {
			continue
		}
		clone := *w
		if err := clone.Normalize(now); err != nil {
			return 0, err
		}
		row := wordRow{
			ID:              clone.ID,
			Text:            clone.Text,
			Definition:      clone.Definition,
			PartOfSpeech:    clone.PartOfSpeech,
			Tier:            string(clone.Tier),
			Difficulty:      string(clone.Difficulty),
			Position:        clone.Position,
			ExampleSentence: clone.ExampleSentence,
			CreatedAt:       clone.CreatedAt.UTC(),
			UpdatedAt:       clone.UpdatedAt.UTC(),
		}
		if _, err := tx.NamedExecContext(ctx, stmt, row); err != nil {
			return 0, translateError(err, nil)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, translateError(err, nil)
	}
	return n, nil
}

func (r *CatalogRepository) selectWords(ctx context.Context, query string, args ...any) ([]*entity.CatalogWord, error) {
	var rows []wordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translateError(err, nil)
	}
	out := make([]*entity.CatalogWord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
