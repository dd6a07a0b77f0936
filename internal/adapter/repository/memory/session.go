package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

// Sessions keeps completed session logs in memory.
type Sessions struct {
	mu   sync.RWMutex
	logs map[string]*entity.SessionLog
}

var _ repository.SessionRepository = (*Sessions)(nil)

func NewSessions() *Sessions {
	return &Sessions{logs: make(map[string]*entity.SessionLog)}
}

func (s *Sessions) Save(ctx context.Context, log *entity.SessionLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clone := *log
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.logs[clone.ID]; exists {
		return entity.ErrDuplicate
	}
	s.logs[clone.ID] = &clone
	return nil
}

// ListByUser returns the newest logs first; limit <= 0 returns all of them.
func (s *Sessions) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.SessionLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*entity.SessionLog, 0)
	for _, l := range s.logs {
		if l.UserID == userID {
			clone := *l
			out = append(out, &clone)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
