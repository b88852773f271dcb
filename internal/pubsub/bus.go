package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const ReviewersChannel = "reviewers"

// UserChannel is the notification channel of one declarant
func UserChannel(userID string) string {
	return "user:" + userID
}

type Bus struct {
	rdb   *redis.Client
	log   *zap.Logger
	wsHub WSHub
}

type WSHub interface {
	Publish(channel string, message map[string]interface{})
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{rdb: rdb, log: log}
}

// SetWSHub sets the WebSocket hub for event broadcasting
func (b *Bus) SetWSHub(hub WSHub) {
	b.wsHub = hub
}

// PublishUser publishes an event to a declarant's channel
func (b *Bus) PublishUser(userID string, event map[string]interface{}) error {
	return b.Publish(UserChannel(userID), event)
}

// PublishReviewers publishes an event to every manager and administrator
func (b *Bus) PublishReviewers(event map[string]interface{}) error {
	return b.Publish(ReviewersChannel, event)
}

// Publish publishes an event to a channel
func (b *Bus) Publish(channel string, event map[string]interface{}) error {
	if _, ok := event["at"]; !ok {
		event["at"] = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, channel, data).Err(); err != nil {
		b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		return err
	}

	if b.wsHub != nil {
		b.wsHub.Publish(channel, event)
	}

	b.log.Debug("Published event", zap.String("channel", channel), zap.String("event", string(data)))
	return nil
}
