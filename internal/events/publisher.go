// Package events publishes poll lifecycle events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "polls:events"

const publishTimeout = 5 * time.Second

// Message is the JSON body published for every event.
type Message struct {
	Event  string          `json:"event"`
	PollID uuid.UUID       `json:"poll_id"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     int64           `json:"at"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes events on a single Redis channel.
type RedisPublisher struct {
	client  redisPublisher
	channel string
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return newPublisher(client, channel, logger)
}

func newPublisher(client redisPublisher, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger, now: time.Now}
}

// Publish sends event for pollID with data encoded as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, event string, pollID uuid.UUID, data interface{}) error {
	msg := Message{Event: event, PollID: pollID, At: p.now().Unix()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	receivers, err := p.client.Publish(ctx, p.channel, body).Result()
	if err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("event", event), zap.String("poll_id", pollID.String()), zap.Int64("receivers", receivers))
	return nil
}
