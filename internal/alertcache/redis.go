package alertcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PriceActionBot/internal/model"
)

const keyPrefix = "priceaction:alert:"

// RedisCache shares alert state between bot instances. Keys expire after
// the cooldown.
type RedisCache struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, addr, password string, db int, cooldown time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisCache{client: client, cooldown: cooldown}, nil
}

func (c *RedisCache) Seen(ctx context.Context, m model.Match) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+Key(m)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Mark sets the key only if absent so the first alert's expiry wins.
func (c *RedisCache) Mark(ctx context.Context, m model.Match) error {
	if err := c.client.SetNX(ctx, keyPrefix+Key(m), time.Now().Unix(), c.cooldown).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
