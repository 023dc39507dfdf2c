package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces event channels in Redis pub/sub.
const channelPrefix = "parley:events:"

// RedisPublisher publishes events over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies connectivity.
func NewRedisPublisher(ctx context.Context, redisURL string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPublisher{client: client}, nil
}

// Publish sends one event envelope to the kind's channel.
func (p *RedisPublisher) Publish(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(NewEnvelope(kind, payload))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	return p.client.Publish(ctx, channelPrefix+kind, data).Err()
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
