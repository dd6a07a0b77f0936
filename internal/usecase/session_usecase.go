package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

const (
	distractorCount = 3
	sessionTTL      = 24 * time.Hour
)

// placeholderDistractors pad the options when a tier has too few words.
var placeholderDistractors = []string{"example", "sample", "another"}

// Session is an in-progress quiz handed to the caller.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Mode      entity.Mode       `json:"mode"`
	Questions []entity.Question `json:"questions"`
	StartedAt time.Time         `json:"started_at"`
}

// SessionUsecase sequences study and review quizzes over the answer pipeline.
type SessionUsecase interface {
	StartStudy(ctx context.Context, userID string) (*Session, error)
	StartReview(ctx context.Context, userID string, today time.Time) (*Session, error)
	Answer(ctx context.Context, sessionID, wordID string, isCorrect bool) (*AnswerResult, error)
	Skip(ctx context.Context, sessionID, wordID string) (*AnswerResult, error)
	Complete(ctx context.Context, sessionID string) (*entity.SessionSummary, error)
	History(ctx context.Context, userID string, limit int) ([]*entity.SessionLog, error)
}

// NewSessionUsecase wires the session orchestrator.
func NewSessionUsecase(
	progress repository.ProgressRepository,
	catalog repository.CatalogRepository,
	logs repository.SessionRepository,
	pool PoolUsecase,
	answers AnswerUsecase,
	settings Settings,
) SessionUsecase {
	return &sessionUsecase{
		progress: progress,
		catalog:  catalog,
		logs:     logs,
		pool:     pool,
		answers:  answers,
		settings: settings.normalized(),
		sessions: make(map[string]*quizSession),
		clock:    time.Now,
		shuffle:  lo.Shuffle[string],
	}
}

type sessionUsecase struct {
	progress repository.ProgressRepository
	catalog  repository.CatalogRepository
	logs     repository.SessionRepository
	pool     PoolUsecase
	answers  AnswerUsecase
	settings Settings

	mu       sync.Mutex
	sessions map[string]*quizSession

	clock   func() time.Time
	shuffle func([]string) []string
}

type quizSession struct {
	mu      sync.Mutex
	session Session
	words   map[string]*entity.CatalogWord
	results []entity.WordResult
	unlocks []entity.TierUnlock
	summary *entity.SessionSummary
}

func (u *sessionUsecase) StartStudy(ctx context.Context, userID string) (*Session, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}

	active, err := u.pool.ActivePool(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		if active, err = u.pool.InitializeNewUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	if len(active) > u.settings.StudyQuizSize {
		active = active[:u.settings.StudyQuizSize]
	}

	tierWords := make(map[entity.Tier][]*entity.CatalogWord)
	return u.open(ctx, userID, entity.ModeStudy, active, func(word *entity.CatalogWord, _ *entity.ProgressRecord) (entity.Question, error) {
		siblings, ok := tierWords[word.Tier]
		if !ok {
			list, err := u.catalog.ListByTier(ctx, word.Tier)
			if err != nil {
				return entity.Question{}, entity.NewCatalogError("list tier words", err)
			}
			siblings = list
			tierWords[word.Tier] = list
		}
		q := newQuestion(word)
		q.Options = u.shuffle(append([]string{word.Text}, u.distractors(word, siblings)...))
		return q, nil
	})
}

func (u *sessionUsecase) StartReview(ctx context.Context, userID string, today time.Time) (*Session, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	if today.IsZero() {
		today = u.clock()
	}

	due, err := dueForReview(ctx, u.progress, userID, today, u.settings.ReviewQuizSize)
	if err != nil {
		return nil, err
	}
	return u.open(ctx, userID, entity.ModeReview, due, func(word *entity.CatalogWord, record *entity.ProgressRecord) (entity.Question, error) {
		q := newQuestion(word)
		if record.ReviewStreak == 0 {
			q.Hint = reviewHint(word.Text)
		}
		return q, nil
	})
}

func (u *sessionUsecase) Answer(ctx context.Context, sessionID, wordID string, isCorrect bool) (*AnswerResult, error) {
	return u.record(ctx, sessionID, wordID, isCorrect, false)
}

func (u *sessionUsecase) Skip(ctx context.Context, sessionID, wordID string) (*AnswerResult, error) {
	return u.record(ctx, sessionID, wordID, false, true)
}

func (u *sessionUsecase) Complete(ctx context.Context, sessionID string) (*entity.SessionSummary, error) {
	s, err := u.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != nil {
		return s.summary, nil
	}

	now := u.clock()
	if err := u.repair(ctx, s, now); err != nil {
		return nil, err
	}

	summary := BuildSummary(s.results)
	summary.SessionID = s.session.ID
	summary.Mode = s.session.Mode
	summary.TierUnlocks = append([]entity.TierUnlock(nil), s.unlocks...)
	summary.StartedAt = s.session.StartedAt
	summary.CompletedAt = now

	log := &entity.SessionLog{
		ID:             s.session.ID,
		UserID:         s.session.UserID,
		Mode:           s.session.Mode,
		WordsStudied:   summary.TotalQuestions,
		CorrectAnswers: summary.Score,
		WordsPromoted:  len(summary.Promoted),
		WordsDemoted:   len(summary.Demoted),
		StartedAt:      summary.StartedAt,
		CompletedAt:    summary.CompletedAt,
	}
	if err := u.logs.Save(ctx, log); err != nil {
		return nil, entity.NewStorageError("save session log", err)
	}

	s.summary = summary
	return summary, nil
}

func (u *sessionUsecase) History(ctx context.Context, userID string, limit int) ([]*entity.SessionLog, error) {
	userID = entity.NormalizeID(userID)
	if userID == "" {
		return nil, entity.ErrInvalidUserID
	}
	logs, err := u.logs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, entity.NewStorageError("list session logs", err)
	}
	return logs, nil
}

type questionBuilder func(word *entity.CatalogWord, record *entity.ProgressRecord) (entity.Question, error)

func (u *sessionUsecase) open(ctx context.Context, userID string, mode entity.Mode, records []*entity.ProgressRecord, build questionBuilder) (*Session, error) {
	now := u.clock()
	s := &quizSession{
		session: Session{
			ID:        uuid.NewString(),
			UserID:    userID,
			Mode:      mode,
			Questions: make([]entity.Question, 0, len(records)),
			StartedAt: now,
		},
		words: make(map[string]*entity.CatalogWord, len(records)),
	}

	for _, record := range records {
		word, err := u.catalog.GetByID(ctx, record.WordID)
		if err != nil {
			return nil, entity.NewCatalogError("get word", err)
		}
		q, err := build(word, record)
		if err != nil {
			return nil, err
		}
		s.words[word.ID] = word
		s.session.Questions = append(s.session.Questions, q)
	}

	u.mu.Lock()
	u.prune(now)
	u.sessions[s.session.ID] = s
	u.mu.Unlock()

	out := s.session
	return &out, nil
}

// record scores one answer. The session only advances once the write succeeded.
func (u *sessionUsecase) record(ctx context.Context, sessionID, wordID string, isCorrect, skipped bool) (*AnswerResult, error) {
	s, err := u.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	wordID = entity.NormalizeID(wordID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary != nil {
		return nil, entity.ErrSessionCompleted
	}
	word, ok := s.words[wordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrWordNotInSession, wordID)
	}

	result, err := u.answers.SubmitAnswer(ctx, AnswerRequest{
		UserID:    s.session.UserID,
		WordID:    wordID,
		Mode:      s.session.Mode,
		IsCorrect: isCorrect,
	})
	if err != nil {
		return nil, err
	}

	s.results = append(s.results, entity.WordResult{
		WordID:     wordID,
		Text:       word.Text,
		Tier:       word.Tier,
		Correct:    isCorrect,
		Skipped:    skipped,
		Transition: result.Transition,
	})
	if result.Mastery != nil && result.Mastery.Unlocked != nil {
		s.unlocks = append(s.unlocks, *result.Mastery.Unlocked)
	}
	return result, nil
}

// repair rewrites every word whose final answer was incorrect or skipped as a
// started record. The write is reissued on every call so a retried Complete
// converges on the same state.
func (u *sessionUsecase) repair(ctx context.Context, s *quizSession, now time.Time) error {
	last := make(map[string]int, len(s.results))
	order := make([]string, 0, len(s.results))
	for i, r := range s.results {
		if _, seen := last[r.WordID]; !seen {
			order = append(order, r.WordID)
		}
		last[r.WordID] = i
	}

	for _, wordID := range order {
		idx := last[wordID]
		if s.results[idx].Correct {
			continue
		}
		record, err := u.progress.Get(ctx, s.session.UserID, wordID)
		if errors.Is(err, entity.ErrProgressNotFound) {
			continue
		}
		if err != nil {
			return entity.NewStorageError("get progress", err)
		}

		previous := record.State
		record.ResetToStarted(now)
		record.Normalize(now)
		if _, err := u.progress.Upsert(ctx, record); err != nil {
			return entity.NewStorageError("upsert progress", err)
		}
		if previous != entity.StateStarted {
			s.results[idx].Transition = &entity.Transition{
				WordID: wordID,
				From:   previous,
				To:     entity.StateStarted,
			}
		}
	}
	return nil
}

func (u *sessionUsecase) lookup(sessionID string) (*quizSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, ok := u.sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	return s, nil
}

// prune drops sessions older than sessionTTL. Callers hold u.mu.
func (u *sessionUsecase) prune(now time.Time) {
	for id, s := range u.sessions {
		if now.Sub(s.session.StartedAt) > sessionTTL {
			delete(u.sessions, id)
		}
	}
}

func (u *sessionUsecase) distractors(word *entity.CatalogWord, siblings []*entity.CatalogWord) []string {
	pool := lo.Uniq(lo.FilterMap(siblings, func(w *entity.CatalogWord, _ int) (string, bool) {
		return w.Text, w.ID != word.ID && !strings.EqualFold(w.Text, word.Text)
	}))
	picked := u.shuffle(pool)
	if len(picked) > distractorCount {
		picked = picked[:distractorCount]
	}
	for _, filler := range placeholderDistractors {
		if len(picked) >= distractorCount {
			break
		}
		if !strings.EqualFold(filler, word.Text) && !lo.Contains(picked, filler) {
			picked = append(picked, filler)
		}
	}
	return picked
}

func newQuestion(word *entity.CatalogWord) entity.Question {
	return entity.Question{
		WordID:       word.ID,
		Definition:   word.Definition,
		PartOfSpeech: word.PartOfSpeech,
		Tier:         word.Tier,
		Answer:       word.Text,
	}
}

// reviewHint keeps the first and last letters and masks the rest.
func reviewHint(text string) string {
	runes := []rune(text)
	if len(runes) <= 2 {
		return text
	}
	return string(runes[0]) + strings.Repeat("_", len(runes)-2) + string(runes[len(runes)-1])
}

// BuildSummary derives a session summary from the recorded results alone.
// When a word appears more than once, an entry carrying a transition wins over
// one without, then a correct entry wins over an incorrect one.
func BuildSummary(results []entity.WordResult) *entity.SessionSummary {
	chosen := make(map[string]entity.WordResult, len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		current, seen := chosen[r.WordID]
		if !seen {
			order = append(order, r.WordID)
			chosen[r.WordID] = r
			continue
		}
		if preferResult(r, current) {
			chosen[r.WordID] = r
		}
	}

	summary := &entity.SessionSummary{
		Correct:   []entity.WordResult{},
		Incorrect: []entity.WordResult{},
		Skipped:   []entity.WordResult{},
		Promoted:  []entity.Transition{},
		Demoted:   []entity.Transition{},
	}
	for _, wordID := range order {
		r := chosen[wordID]
		switch {
		case r.Correct:
			summary.Correct = append(summary.Correct, r)
		case r.Skipped:
			summary.Skipped = append(summary.Skipped, r)
		default:
			summary.Incorrect = append(summary.Incorrect, r)
		}
		if r.Transition == nil {
			continue
		}
		if r.Transition.IsPromotion() {
			summary.Promoted = append(summary.Promoted, *r.Transition)
		}
		if r.Transition.IsDemotion() {
			summary.Demoted = append(summary.Demoted, *r.Transition)
		}
	}

	summary.TotalQuestions = len(order)
	summary.Score = len(summary.Correct)
	if summary.TotalQuestions > 0 {
		summary.Accuracy = (summary.Score*100 + summary.TotalQuestions/2) / summary.TotalQuestions
	}
	return summary
}

func preferResult(candidate, current entity.WordResult) bool {
	if (candidate.Transition != nil) != (current.Transition != nil) {
		return candidate.Transition != nil
	}
	return candidate.Correct && !current.Correct
}
