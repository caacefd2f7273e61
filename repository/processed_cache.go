package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedSessionPrefix = "idem:stripe_session:"

// ProcessedSessionCache is a fast-path lookup in front of the relational
// processed-session marker. It is only written after a commit.
type ProcessedSessionCache interface {
	Seen(ctx context.Context, sessionID string) (bool, error)
	Remember(ctx context.Context, sessionID string) error
}

type RedisProcessedSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedSessionCache(client *redis.Client, ttl time.Duration) *RedisProcessedSessionCache {
	return &RedisProcessedSessionCache{client: client, ttl: ttl}
}

func (c *RedisProcessedSessionCache) Seen(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, processedSessionPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisProcessedSessionCache) Remember(ctx context.Context, sessionID string) error {
	return c.client.Set(ctx, processedSessionPrefix+sessionID, "1", c.ttl).Err()
}
