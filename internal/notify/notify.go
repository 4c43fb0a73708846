// Package notify publishes run update notifications over Redis pub/sub so
// dashboards can refresh when a run's report changes.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis channel run updates are published on.
const Channel = "pagegrade.run_updated"

// RunUpdated is the message published after a run's report is recomputed.
type RunUpdated struct {
	RunID     string   `json:"run_id"`
	State     string   `json:"state"`
	Composite *float64 `json:"composite"`
	Timestamp int64    `json:"timestamp"`
}

// Publisher delivers run update notifications.
type Publisher interface {
	PublishRunUpdated(ctx context.Context, msg RunUpdated) error
}

// RedisPublisher publishes to a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisPublisher{client: client, channel: Channel}, nil
}

// PublishRunUpdated publishes msg, stamping it with the current time when
// it has none.
func (p *RedisPublisher) PublishRunUpdated(ctx context.Context, msg RunUpdated) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe subscribes to the run update channel.
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Nop discards notifications. Used when no Redis address is configured.
type Nop struct{}

func (Nop) PublishRunUpdated(context.Context, RunUpdated) error { return nil }

// Decode parses a published payload.
func Decode(payload string) (RunUpdated, error) {
	var msg RunUpdated
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return RunUpdated{}, fmt.Errorf("decode run update: %w", err)
	}
	return msg, nil
}
