package repository

import (
	"context"

	"github.com/eslsoft/wordladder/internal/entity"
)

// SessionRepository persists completed quiz session logs.
type SessionRepository interface {
	Save(ctx context.Context, log *entity.SessionLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.SessionLog, error)
}
