// Package cache is the optional Redis extension handed to route handlers.
//
// A nil *Cache is valid and behaves as an always-empty cache, so callers do
// not need to check whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deppfellow/servicekit/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PingTimeout bounds the startup connectivity check.
const PingTimeout = 5 * time.Second

// Cache stores JSON values in Redis under a common key prefix.
type Cache struct {
	Client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zerolog.Logger
}

// New returns nil when Redis is not configured. A failed ping is logged and
// the client is kept; Redis connections are lazy and may recover.
func New(ctx context.Context, cfg config.RedisConfig, logger *zerolog.Logger) *Cache {
	if !cfg.Enabled() {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Str("address", cfg.Address).Msg("failed to connect to Redis, continuing without a warm cache")
	} else {
		logger.Info().Str("address", cfg.Address).Msg("connected to Redis")
	}

	return &Cache{
		Client: client,
		prefix: config.ServiceName + ":",
		ttl:    time.Duration(cfg.TTL) * time.Second,
		log:    logger,
	}
}

// Key joins parts under the cache prefix.
func (c *Cache) Key(parts ...string) string {
	key := config.ServiceName + ":"
	if c != nil {
		key = c.prefix
	}
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}

	raw, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cache get %s", key)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "cache decode %s", key)
	}
	return true, nil
}

// SetJSON stores v at key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cache encode %s", key)
	}
	return errors.Wrapf(c.Client.Set(ctx, key, raw, c.ttl).Err(), "cache set %s", key)
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.Client.Del(ctx, keys...).Err(), "cache delete")
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.log.Info().Msg("closing redis client")
	return c.Client.Close()
}
