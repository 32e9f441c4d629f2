package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// defaultClosedPeriodTTL bounds how long a closed-month answer may be served
// without consulting the database. Close/reopen invalidate eagerly, so the
// TTL only matters for entries written by another process instance.
const defaultClosedPeriodTTL = 5 * time.Minute

// RedisConfig holds the connection settings for a Redis-backed cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisClosedPeriodCache caches closed-month lookups in Redis. Every
// mutating payables operation checks the period guard, so this keeps the
// hottest read off the database. All failures degrade to a cache miss.
type RedisClosedPeriodCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisClosedPeriodCacheOption is a functional option for configuring the cache
type RedisClosedPeriodCacheOption func(*RedisClosedPeriodCache)

// WithTTL sets the entry time-to-live
func WithTTL(ttl time.Duration) RedisClosedPeriodCacheOption {
	return func(c *RedisClosedPeriodCache) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisClosedPeriodCacheOption {
	return func(c *RedisClosedPeriodCache) {
		c.logger = logger
	}
}

// NewRedisClosedPeriodCache creates a new Redis-based closed period cache
func NewRedisClosedPeriodCache(cfg RedisConfig, opts ...RedisClosedPeriodCacheOption) (*RedisClosedPeriodCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisClosedPeriodCache{
		client:     client,
		ownsClient: true,
		ttl:        defaultClosedPeriodTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisClosedPeriodCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisClosedPeriodCacheWithClient(client *redis.Client, opts ...RedisClosedPeriodCacheOption) *RedisClosedPeriodCache {
	cache := &RedisClosedPeriodCache{
		client:     client,
		ownsClient: false,
		ttl:        defaultClosedPeriodTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// periodCacheKey generates the cache key for a business + month pair
func (c *RedisClosedPeriodCache) periodCacheKey(businessID uuid.UUID, month string) string {
	return fmt.Sprintf("closed_period:%s:%s", businessID.String(), month)
}

// Get returns (closed, true) on a cache hit, (_, false) on a miss. Redis
// errors are treated as misses so the caller falls through to the database.
func (c *RedisClosedPeriodCache) Get(ctx context.Context, businessID uuid.UUID, month string) (bool, bool) {
	key := c.periodCacheKey(businessID, month)

	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.logger.Warn("Failed to read closed period from cache",
			zap.String("month", month),
			zap.Error(err))
		return false, false
	}

	return value == "1", true
}

// Set records whether the month is closed
func (c *RedisClosedPeriodCache) Set(ctx context.Context, businessID uuid.UUID, month string, closed bool) {
	key := c.periodCacheKey(businessID, month)

	value := "0"
	if closed {
		value = "1"
	}

	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache closed period",
			zap.String("month", month),
			zap.Error(err))
	}
}

// Invalidate drops the cached entry for the month
func (c *RedisClosedPeriodCache) Invalidate(ctx context.Context, businessID uuid.UUID, month string) {
	key := c.periodCacheKey(businessID, month)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to invalidate closed period cache",
			zap.String("month", month),
			zap.Error(err))
	}
}

// Close releases any resources held by the cache
func (c *RedisClosedPeriodCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}
