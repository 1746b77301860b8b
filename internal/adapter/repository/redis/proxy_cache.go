package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProxyCache implements usecase.ProxyCache using Redis.
type ProxyCache struct {
	client redis.UniversalClient
	prefix string
}

// NewProxyCache creates a new ProxyCache. Every key is stored under prefix.
func NewProxyCache(client redis.UniversalClient, prefix string) *ProxyCache {
	return &ProxyCache{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a value by key. A missing key is reported with ok=false.
func (c *ProxyCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores a value with TTL. A zero ttl keeps the key until it is overwritten.
func (c *ProxyCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key.
func (c *ProxyCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// HealthCheck pings the server.
func (c *ProxyCache) HealthCheck(ctx context.Context) (bool, error) {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return false, err
	}
	return true, nil
}
