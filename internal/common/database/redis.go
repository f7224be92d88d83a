// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"quote-vehicle-reconciler/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient backs the cache of catalog code resolutions, keyed by catalog
// version.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds the pool for the resolution cache.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping is retried at startup when the cache is enabled.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
