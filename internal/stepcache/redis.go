package stepcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache stores step results in a Redis hash per job, expiring after
// ttl. The same Redis instance backing the task queue is reused.
func NewRedisCache(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) key(jobKey string) string {
	return fmt.Sprintf("publish:steps:%s", jobKey)
}

func (c *redisCache) Get(ctx context.Context, jobKey, step string) (string, bool, error) {
	result, err := c.client.HGet(ctx, c.key(jobKey), step).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		slog.Info(err.Error())
		return "", false, err
	}
	return result, true, nil
}

func (c *redisCache) Set(ctx context.Context, jobKey, step, result string) error {
	key := c.key(jobKey)
	if err := c.client.HSet(ctx, key, step, result).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (c *redisCache) Clear(ctx context.Context, jobKey string) error {
	if err := c.client.Del(ctx, c.key(jobKey)).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
