// Package events publishes learning events on a redis channel for UI
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/usecase"
)

const (
	TypeTransition = "transition"
	TypeTierUnlock = "tier_unlock"

	defaultChannel = "wordladder.events"
)

// Event is the JSON payload written to the channel.
type Event struct {
	Type       string             `json:"type"`
	UserID     string             `json:"user_id"`
	Transition *entity.Transition `json:"transition,omitempty"`
	Unlock     *entity.TierUnlock `json:"unlock,omitempty"`
	At         time.Time          `json:"at"`
}

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisPublisher implements usecase.EventPublisher over redis pub/sub.
type RedisPublisher struct {
	client  publishClient
	channel string
	logger  logrus.FieldLogger
	clock   func() time.Time
}

var _ usecase.EventPublisher = (*RedisPublisher)(nil)

func newRedisPublisher(client publishClient, channel string, logger logrus.FieldLogger) *RedisPublisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.WithField("service", "RedisPublisher"),
		clock:   time.Now,
	}
}

// NewPublisher connects to redis when events.redis_addr is set and falls back
// to a no-op publisher otherwise.
func NewPublisher(cfg *config.Config, logger *logrus.Logger) (usecase.EventPublisher, func(), error) {
	addr := strings.TrimSpace(cfg.Events.RedisAddr)
	if addr == "" {
		logger.Debug("events.redis_addr not set, events are discarded")
		return usecase.NoopPublisher{}, func() {}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Events.RedisPassword,
		DB:          cfg.Events.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	cleanup := func() {
		if err := rdb.Close(); err != nil {
			logger.Warnf("close redis client: %v", err)
		}
	}
	return newRedisPublisher(rdb, cfg.Events.Channel, logger), cleanup, nil
}

func (p *RedisPublisher) PublishTransition(ctx context.Context, userID string, transition entity.Transition) error {
	return p.publish(ctx, Event{Type: TypeTransition, UserID: userID, Transition: &transition})
}

func (p *RedisPublisher) PublishTierUnlock(ctx context.Context, userID string, unlock entity.TierUnlock) error {
	return p.publish(ctx, Event{Type: TypeTierUnlock, UserID: userID, Unlock: &unlock})
}

func (p *RedisPublisher) publish(ctx context.Context, evt Event) error {
	evt.At = p.clock().UTC()
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.WithError(err).WithField("type", evt.Type).Warn("publish event failed")
		return fmt.Errorf("publish %s event: %w", evt.Type, err)
	}
	return nil
}
