package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config selects a standalone or cluster proxy cache.
type Config struct {
	// URL of a standalone server, used when ClusterAddrs is empty.
	URL          string
	ClusterAddrs []string
	Password     string
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	var client redis.UniversalClient

	if len(cfg.ClusterAddrs) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.ClusterAddrs,
			Password: cfg.Password,
		})
	} else {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		client = redis.NewClient(opts)
	}

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
