package usecase

import (
	"context"

	"github.com/eslsoft/wordladder/internal/entity"
)

// EventPublisher fans transition and tier-unlock signals out to UI consumers.
// Publishing is best effort; it never gates a state change.
type EventPublisher interface {
	PublishTransition(ctx context.Context, userID string, transition entity.Transition) error
	PublishTierUnlock(ctx context.Context, userID string, unlock entity.TierUnlock) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransition(context.Context, string, entity.Transition) error { return nil }

func (NoopPublisher) PublishTierUnlock(context.Context, string, entity.TierUnlock) error { return nil }
