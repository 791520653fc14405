package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/config"
)

// ErrCacheMiss indicates the key was not found in cache
var ErrCacheMiss = errors.New("cache miss")

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return client, nil
}

// RedisCache provides JSON caching on top of a Redis client
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisCache creates a cache whose entries expire after ttl
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// setIfNewerScript writes a versioned entry unless the stored one carries a
// higher version. KEYS[1] entry, ARGV[1] version, ARGV[2] payload, ARGV[3] ttl ms.
var setIfNewerScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Get retrieves a versioned value from cache and returns its version
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (int64, error) {
	fields, err := c.client.HMGet(ctx, key, "version", "data").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get from cache: %w", err)
	}
	rawVersion, okVersion := fields[0].(string)
	rawData, okData := fields[1].(string)
	if !okVersion || !okData {
		return 0, ErrCacheMiss
	}

	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cached version: %w", err)
	}
	if err := json.Unmarshal([]byte(rawData), dest); err != nil {
		return 0, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return version, nil
}

// Set stores value under key unless the cache already holds a newer version.
// It reports whether the value was written.
func (c *RedisCache) Set(ctx context.Context, key string, version int64, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	written, err := setIfNewerScript.Run(ctx, c.client, []string{key},
		version, string(data), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set cache: %w", err)
	}

	return written == 1, nil
}

// Delete removes a value from cache
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// HealthCheck checks if Redis is reachable
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
