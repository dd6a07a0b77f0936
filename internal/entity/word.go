package entity

import (
	"strings"
	"time"
)

// Tier is an ordered frequency bucket of catalog words such as "top_25".
// Ordering comes from the catalog, never from the label itself.
type Tier string

// Difficulty grades a catalog word for display.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty maps free text onto a known difficulty, defaulting to Medium.
func ParseDifficulty(value string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "easy":
		return DifficultyEasy
	case "hard":
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// CatalogWord is a read-only entry of the word catalog.
type CatalogWord struct {
	ID              string     `json:"id"`
	Text            string     `json:"text"`
	Definition      string     `json:"definition"`
	PartOfSpeech    string     `json:"part_of_speech,omitempty"`
	Tier            Tier       `json:"tier"`
	Difficulty      Difficulty `json:"difficulty"`
	Position        int        `json:"position"`
	ExampleSentence string     `json:"example_sentence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize trims text fields and fills defaults before persistence.
func (w *CatalogWord) Normalize(now time.Time) error {
	w.ID = NormalizeID(w.ID)
	w.Text = strings.TrimSpace(w.Text)
	w.Tier = Tier(strings.TrimSpace(string(w.Tier)))
	if w.ID == "" || w.Text == "" || w.Tier == "" {
		return ErrEmptyCatalogEntry
	}
	w.Definition = strings.TrimSpace(w.Definition)
	w.PartOfSpeech = strings.TrimSpace(w.PartOfSpeech)
	if w.Difficulty == "" {
		w.Difficulty = DifficultyMedium
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	return nil
}

// TierStatus is the read-side view of one tier for a user.
type TierStatus struct {
	Tier     Tier `json:"tier"`
	Total    int  `json:"total"`
	Mastered int  `json:"mastered"`
	Eligible bool `json:"eligible"`
}

// Complete reports whether every word of the tier is mastered.
func (s TierStatus) Complete() bool {
	return s.Total > 0 && s.Mastered >= s.Total
}

// TierUnlock signals that finishing PreviousTier made NewTier eligible.
type TierUnlock struct {
	PreviousTier Tier `json:"previous_tier"`
	NewTier      Tier `json:"new_tier"`
}
