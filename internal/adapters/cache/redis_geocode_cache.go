package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"delivery-ops-service/internal/domain"
)

const geocodeKeyPrefix = "geocode:"

// RedisGeocodeCache shares address lookups between service instances.
// Entries expire so moved or corrected addresses are eventually re-resolved.
type RedisGeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: ttl}
}

// OpenRedis parses a redis:// URL and checks the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func geocodeKey(address string) string {
	return geocodeKeyPrefix + strings.ToLower(address)
}

func (c *RedisGeocodeCache) Get(ctx context.Context, address string) (domain.Coordinates, bool, error) {
	raw, err := c.client.Get(ctx, geocodeKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode cache get: %w", err)
	}

	var v domain.Coordinates
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode cache decode %q: %w", address, err)
	}
	return v, true, nil
}

func (c *RedisGeocodeCache) Put(ctx context.Context, address string, v domain.Coordinates) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("geocode cache encode: %w", err)
	}
	if err := c.client.Set(ctx, geocodeKey(address), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("geocode cache set: %w", err)
	}
	return nil
}
