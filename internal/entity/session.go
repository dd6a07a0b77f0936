package entity

import "time"

// WordResult is one answered or skipped question inside a quiz session.
type WordResult struct {
	WordID     string      `json:"word_id"`
	Text       string      `json:"text"`
	Tier       Tier        `json:"tier"`
	Correct    bool        `json:"correct"`
	Skipped    bool        `json:"skipped"`
	Transition *Transition `json:"transition,omitempty"`
}

// SessionSummary is derived from the transitions recorded during a session.
type SessionSummary struct {
	SessionID      string       `json:"session_id"`
	Mode           Mode         `json:"mode"`
	Score          int          `json:"score"`
	TotalQuestions int          `json:"total_questions"`
	Accuracy       int          `json:"accuracy"`
	Correct        []WordResult `json:"correct"`
	Incorrect      []WordResult `json:"incorrect"`
	Skipped        []WordResult `json:"skipped"`
	Promoted       []Transition `json:"promoted"`
	Demoted        []Transition `json:"demoted"`
	TierUnlocks    []TierUnlock `json:"tier_unlocks,omitempty"`
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    time.Time    `json:"completed_at"`
}

// SessionLog is the persisted record of a completed session.
type SessionLog struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Mode           Mode      `json:"mode"`
	WordsStudied   int       `json:"words_studied"`
	CorrectAnswers int       `json:"correct_answers"`
	WordsPromoted  int       `json:"words_promoted"`
	WordsDemoted   int       `json:"words_demoted"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Question is one quiz prompt handed to the UI.
type Question struct {
	WordID       string   `json:"word_id"`
	Definition   string   `json:"definition"`
	PartOfSpeech string   `json:"part_of_speech,omitempty"`
	Tier         Tier     `json:"tier"`
	Options      []string `json:"options,omitempty"`
	Hint         string   `json:"hint,omitempty"`
	Answer       string   `json:"answer"`
}
