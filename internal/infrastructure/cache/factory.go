package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/alpenform/storefront/internal/infrastructure/config"
)

// SettingsCacheFactory creates settings caches based on configuration
type SettingsCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SettingsCacheFactoryOption is a functional option for configuring the factory
type SettingsCacheFactoryOption func(*SettingsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SettingsCacheFactoryOption {
	return func(f *SettingsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory
// cache when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SettingsCacheFactoryOption {
	return func(f *SettingsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSettingsCacheFactory creates a new factory
func NewSettingsCacheFactory(cfg config.RedisConfig, opts ...SettingsCacheFactoryOption) *SettingsCacheFactory {
	f := &SettingsCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache tries Redis first and falls back to the in-memory cache
// when Redis is unavailable and fallback is allowed
func (f *SettingsCacheFactory) CreateCache() (SettingsCache, error) {
	if f.redisConfig.Host != "" {
		cache, err := NewRedisSettingsCache(f.redisConfig)
		if err == nil {
			f.logger.Info("using Redis settings cache")
			return cache, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for settings cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory settings cache",
			zap.Error(err))
	}
	return NewInMemorySettingsCache(), nil
}
