package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Redis shares verdicts between engine replicas
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to address and verifies the connection
func NewRedis(ctx context.Context, address, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// Client exposes the underlying connection for health probes
func (c *Redis) Client() *redis.Client {
	return c.client
}

// Get returns a cached verdict. Redis failures are logged and treated as a miss.
func (c *Redis) Get(ctx context.Context, key string) (models.Result, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "key", key, "error", err)
		}
		return models.Result{}, false
	}

	var res models.Result
	if err := json.Unmarshal(data, &res); err != nil {
		slog.Warn("corrupt cached verdict", "key", key, "error", err)
		return models.Result{}, false
	}
	return res, true
}

// Set stores a verdict with the configured TTL
func (c *Redis) Set(ctx context.Context, key string, res models.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		slog.Warn("failed to marshal verdict", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}

// Close closes the Redis connection
func (c *Redis) Close() error {
	return c.client.Close()
}
