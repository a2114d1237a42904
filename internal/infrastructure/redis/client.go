package redisinfra

import (
	"context"
	"fmt"

	"github.com/go-email-relay/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient parses cfg.RedisURL and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
