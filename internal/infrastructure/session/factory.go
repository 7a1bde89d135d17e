package session

import (
	"fmt"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory creates the session store selected by configuration
type Factory struct {
	redisConfig           config.RedisConfig
	sessionConfig         config.SessionConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a session store factory
func NewFactory(redisCfg config.RedisConfig, sessionCfg config.SessionConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		sessionConfig:         sessionCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore builds the configured backend
func (f *Factory) CreateStore() (Store, error) {
	if f.sessionConfig.Backend != "redis" {
		return NewMemoryStore(f.sessionConfig.TTL), nil
	}

	store, err := NewRedisStore(f.redisConfig, f.sessionConfig)
	if err == nil {
		f.logger.Info("using Redis session store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis session store unavailable: %w", err)
	}

	// sessions are then local to this instance
	f.logger.Warn("Redis unavailable, falling back to in-memory session store", zap.Error(err))
	return NewMemoryStore(f.sessionConfig.TTL), nil
}
