package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// RedisProgressCache caches the (raised, target) progress view. Entries are
// short-lived and invalidated on every state transition, so a stale read is
// bounded by the TTL even if an invalidation is lost.
type RedisProgressCache struct {
	client *redis.Client
}

func NewRedisProgressCache(client *redis.Client) *RedisProgressCache {
	return &RedisProgressCache{client: client}
}

func progressKey(projectID uint64) string {
	return "funding:progress:" + strconv.FormatUint(projectID, 10)
}

func (c *RedisProgressCache) Get(ctx context.Context, projectID uint64) (*domain.Progress, error) {
	raw, err := c.client.Get(ctx, progressKey(projectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var progress domain.Progress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (c *RedisProgressCache) Set(ctx context.Context, projectID uint64, progress domain.Progress, ttl time.Duration) error {
	blob, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, progressKey(projectID), blob, ttl).Err()
}

func (c *RedisProgressCache) Invalidate(ctx context.Context, projectID uint64) error {
	return c.client.Del(ctx, progressKey(projectID)).Err()
}
