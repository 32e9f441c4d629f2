package cache

import (
	payables "github.com/ledgerline/backend/internal/application/payables"
	"github.com/ledgerline/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ClosedPeriodCacheFactory creates closed period caches based on configuration
type ClosedPeriodCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ClosedPeriodCacheFactoryOption is a functional option for configuring the factory
type ClosedPeriodCacheFactoryOption func(*ClosedPeriodCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ClosedPeriodCacheFactoryOption {
	return func(f *ClosedPeriodCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ClosedPeriodCacheFactoryOption {
	return func(f *ClosedPeriodCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewClosedPeriodCacheFactory creates a new factory
func NewClosedPeriodCacheFactory(cfg config.RedisConfig, opts ...ClosedPeriodCacheFactoryOption) *ClosedPeriodCacheFactory {
	f := &ClosedPeriodCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCache tries Redis first and falls back to an in-memory cache when
// Redis is unavailable and fallback is allowed. The in-memory cache does not
// share invalidations across process instances; its TTL bounds the staleness.
func (f *ClosedPeriodCacheFactory) CreateCache() (payables.ClosedPeriodCache, error) {
	redisCache, err := NewRedisClosedPeriodCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, WithCacheLogger(f.logger))
	if err == nil {
		f.logger.Info("using Redis closed period cache")
		return redisCache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory closed period cache",
		zap.Error(err))
	return NewInMemoryClosedPeriodCache(0), nil
}
