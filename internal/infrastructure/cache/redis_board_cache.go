package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultBoardKeyPrefix namespaces queue board entries
	DefaultBoardKeyPrefix = "clinic:queue:board:"

	// DefaultBoardTTL bounds staleness when an invalidation is lost
	DefaultBoardTTL = 5 * time.Second

	// boardGenerationTTL outlives any board of the day the key names
	boardGenerationTTL = 48 * time.Hour
)

// setIfGeneration writes the board only while the generation counter still
// holds the value the caller read before loading it.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisBoardCache stores rendered department boards in Redis as JSON.
type RedisBoardCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisBoardCacheOption configures a RedisBoardCache
type RedisBoardCacheOption func(*RedisBoardCache)

// WithBoardKeyPrefix overrides the key prefix
func WithBoardKeyPrefix(prefix string) RedisBoardCacheOption {
	return func(c *RedisBoardCache) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithBoardTTL overrides the entry TTL
func WithBoardTTL(ttl time.Duration) RedisBoardCacheOption {
	return func(c *RedisBoardCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithBoardLogger sets the logger
func WithBoardLogger(logger *zap.Logger) RedisBoardCacheOption {
	return func(c *RedisBoardCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRedisBoardCache creates a board cache over client
func NewRedisBoardCache(client *redis.Client, opts ...RedisBoardCacheOption) *RedisBoardCache {
	c := &RedisBoardCache{
		client:    client,
		keyPrefix: DefaultBoardKeyPrefix,
		ttl:       DefaultBoardTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// key and generationKey share a hash tag so the script sees both on one cluster slot
func (c *RedisBoardCache) key(k appqueue.BoardKey) string {
	return c.keyPrefix + "{" + k.String() + "}"
}

func (c *RedisBoardCache) generationKey(k appqueue.BoardKey) string {
	return c.key(k) + ":gen"
}

// Get returns the cached board, or nil and the current generation on a miss
func (c *RedisBoardCache) Get(ctx context.Context, key appqueue.BoardKey) (*appqueue.Board, uint64, error) {
	values, err := c.client.MGet(ctx, c.key(key), c.generationKey(key)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read queue board from cache: %w", err)
	}

	var generation uint64
	if raw, ok := values[1].(string); ok {
		if generation, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("failed to parse queue board generation %q: %w", raw, err)
		}
	}

	data, ok := values[0].(string)
	if !ok {
		return nil, generation, nil
	}
	var board appqueue.Board
	if err := json.Unmarshal([]byte(data), &board); err != nil {
		c.logger.Warn("Corrupt queue board cache entry, dropping it",
			zap.String("key", c.key(key)),
			zap.Error(err),
		)
		_ = c.client.Del(ctx, c.key(key)).Err()
		return nil, generation, nil
	}
	return &board, generation, nil
}

// Set stores board under key unless key was invalidated after generation was read
func (c *RedisBoardCache) Set(ctx context.Context, key appqueue.BoardKey, board *appqueue.Board, generation uint64) error {
	if board == nil {
		return nil
	}
	data, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("failed to encode queue board: %w", err)
	}
	err = setIfGeneration.Run(ctx, c.client,
		[]string{c.key(key), c.generationKey(key)},
		strconv.FormatUint(generation, 10), data, c.ttl.Milliseconds(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to write queue board to cache: %w", err)
	}
	return nil
}

// Invalidate removes the board for key and bumps its generation
func (c *RedisBoardCache) Invalidate(ctx context.Context, key appqueue.BoardKey) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.generationKey(key))
		pipe.Expire(ctx, c.generationKey(key), boardGenerationTTL)
		pipe.Del(ctx, c.key(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate queue board: %w", err)
	}
	return nil
}

var _ appqueue.BoardCache = (*RedisBoardCache)(nil)
