package cache

import (
	"context"
	"fmt"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/clinic/backend/internal/domain/shared"
	"github.com/clinic/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores bundles the Redis-or-memory backed stores the services need
type Stores struct {
	Idempotency shared.IdempotencyStore
	Boards      appqueue.BoardCache
	client      *redis.Client
}

// Distributed reports whether the stores are shared through Redis
func (s *Stores) Distributed() bool {
	return s.client != nil
}

// Ping checks the Redis connection. In-memory stores always succeed.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the stores and the Redis connection
func (s *Stores) Close() error {
	var firstErr error
	if s.Idempotency != nil {
		firstErr = s.Idempotency.Close()
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StoreFactory creates the stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	boardTTL              time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory stores. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(redisCfg config.RedisConfig, boardTTL time.Duration, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           redisCfg,
		boardTTL:              boardTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns Redis-backed stores when Redis is enabled and reachable,
// otherwise in-memory stores (unless fallback is disabled).
func (f *StoreFactory) Create(ctx context.Context) (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory idempotency and board stores")
		return f.inMemory(), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Duplicate payment detection will not span instances.",
			zap.Error(err),
		)
		return f.inMemory(), nil
	}

	f.logger.Info("Using Redis idempotency and board stores", zap.String("addr", f.redisConfig.Addr()))
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Boards: NewRedisBoardCache(client,
			WithBoardTTL(f.boardTTL),
			WithBoardLogger(f.logger),
		),
		client: client,
	}, nil
}

func (f *StoreFactory) inMemory() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Boards:      NewInMemoryBoardCache(f.boardTTL),
	}
}
