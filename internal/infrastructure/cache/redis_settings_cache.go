package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alpenform/storefront/internal/domain/region"
	"github.com/alpenform/storefront/internal/infrastructure/config"
)

// RedisSettingsCache implements SettingsCache using Redis so multiple
// storefront instances share one fetched region list.
type RedisSettingsCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

const defaultSettingsKeyPrefix = "storefront:settings:"

// NewRedisSettingsCache creates a Redis-backed settings cache and
// verifies the connection
func NewRedisSettingsCache(cfg config.RedisConfig) (*RedisSettingsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSettingsCache{
		client:    client,
		keyPrefix: defaultSettingsKeyPrefix,
		ttl:       cfg.SettingsTTL,
	}, nil
}

// NewRedisSettingsCacheWithClient creates a cache with an existing Redis
// client. Useful for testing or when sharing a client across components.
func NewRedisSettingsCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSettingsCache {
	if keyPrefix == "" {
		keyPrefix = defaultSettingsKeyPrefix
	}
	return &RedisSettingsCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Regions returns the cached region list and whether it was populated
func (c *RedisSettingsCache) Regions(ctx context.Context) ([]region.Region, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+"regions").Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached regions: %w", err)
	}

	var regions []region.Region
	if err := json.Unmarshal([]byte(raw), &regions); err != nil {
		// Corrupt entry reads as unpopulated so it gets overwritten
		return nil, false, nil
	}
	return regions, true, nil
}

// SetRegions populates the region list
func (c *RedisSettingsCache) SetRegions(ctx context.Context, regions []region.Region) error {
	blob, err := json.Marshal(regions)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.keyPrefix+"regions", blob, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache regions: %w", err)
	}
	return nil
}

// Reset drops all cached settings
func (c *RedisSettingsCache) Reset(ctx context.Context) error {
	return c.client.Del(ctx, c.keyPrefix+"regions").Err()
}

// Close closes the Redis client
func (c *RedisSettingsCache) Close() error {
	return c.client.Close()
}

var _ SettingsCache = (*RedisSettingsCache)(nil)
