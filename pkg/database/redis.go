package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"org-directory-go/internal/config"
	"org-directory-go/pkg/log"
)

// NewRedis 创建 Redis 客户端并测试连接。
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}

// RedisAttemptCounter 用 Redis 计数某个事件的失败次数，计数键在 ttl 后过期。
type RedisAttemptCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAttemptCounter 创建一个基于 Redis 的失败计数器。
func NewAttemptCounter(rdb *redis.Client, ttl time.Duration) *RedisAttemptCounter {
	return &RedisAttemptCounter{rdb: rdb, ttl: ttl}
}

func (c *RedisAttemptCounter) key(id string) string {
	return "directory:attempts:" + id
}

// Incr 将失败次数加一并返回当前值。
func (c *RedisAttemptCounter) Incr(ctx context.Context, id string) (int64, error) {
	n, err := c.rdb.Incr(ctx, c.key(id)).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, c.key(id), c.ttl).Err()
	return n, nil
}

// Reset 清除失败计数。
func (c *RedisAttemptCounter) Reset(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}
