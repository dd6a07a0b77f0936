package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/infrastructure/config"
	"github.com/eslsoft/wordladder/internal/usecase"
)

type fakeClient struct {
	channel  string
	messages [][]byte
	err      error
}

func (f *fakeClient) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.channel = channel
	f.messages = append(f.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRedisPublisherPayloads(t *testing.T) {
	client := &fakeClient{}
	pub := newRedisPublisher(client, "", quietLogger())
	at := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	pub.clock = func() time.Time { return at }
	ctx := context.Background()

	if err := pub.PublishTransition(ctx, "u1", entity.Transition{WordID: "time", From: entity.StateStarted, To: entity.StateReady, Streak: 3, Correct: true}); err != nil {
		t.Fatalf("publish transition: %v", err)
	}
	if err := pub.PublishTierUnlock(ctx, "u1", entity.TierUnlock{PreviousTier: "top_25", NewTier: "top_100"}); err != nil {
		t.Fatalf("publish unlock: %v", err)
	}

	if client.channel != defaultChannel {
		t.Fatalf("expected default channel, got %q", client.channel)
	}
	if len(client.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.messages))
	}

	var first Event
	if err := json.Unmarshal(client.messages[0], &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Type != TypeTransition || first.Transition == nil || first.Transition.To != entity.StateReady || !first.At.Equal(at) {
		t.Fatalf("unexpected transition event: %+v", first)
	}

	var second Event
	if err := json.Unmarshal(client.messages[1], &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Type != TypeTierUnlock || second.Unlock == nil || second.Unlock.NewTier != "top_100" {
		t.Fatalf("unexpected unlock event: %+v", second)
	}
}

func TestRedisPublisherError(t *testing.T) {
	boom := errors.New("connection refused")
	pub := newRedisPublisher(&fakeClient{err: boom}, "events", quietLogger())
	err := pub.PublishTransition(context.Background(), "u1", entity.Transition{WordID: "time"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestNewPublisherWithoutRedis(t *testing.T) {
	pub, cleanup, err := NewPublisher(&config.Config{}, quietLogger())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	defer cleanup()
	if _, ok := pub.(usecase.NoopPublisher); !ok {
		t.Fatalf("expected noop publisher, got %T", pub)
	}
}
