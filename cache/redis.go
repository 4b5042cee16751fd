// Package cache holds the optional Redis-backed export history.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"slidecast/config"
	"slidecast/logger"
)

// NewClient connects to the configured Redis instance. Returns (nil, nil)
// when Redis is not configured; callers treat a nil client as "cache off".
func NewClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to redis", logger.String("host", cfg.RedisHost))
	return client, nil
}
