package cache

import (
	"context"
	"sync"
	"time"

	appqueue "github.com/clinic/backend/internal/application/queue"
)

type boardEntry struct {
	board     appqueue.Board
	expiresAt time.Time
}

// InMemoryBoardCache keeps boards in process memory.
// Boards are copied on the way in and out so callers cannot mutate cached state.
type InMemoryBoardCache struct {
	mu          sync.RWMutex
	entries     map[string]boardEntry
	generations map[string]uint64
	ttl         time.Duration
	now         func() time.Time
}

// NewInMemoryBoardCache creates a cache whose entries live for ttl
func NewInMemoryBoardCache(ttl time.Duration, opts ...InMemoryOption) *InMemoryBoardCache {
	if ttl <= 0 {
		ttl = DefaultBoardTTL
	}
	o := buildInMemoryOptions(opts)
	return &InMemoryBoardCache{
		entries:     make(map[string]boardEntry),
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         o.now,
	}
}

// Get returns a copy of the cached board, or nil and the current generation on a miss
func (c *InMemoryBoardCache) Get(_ context.Context, key appqueue.BoardKey) (*appqueue.Board, uint64, error) {
	c.mu.RLock()
	e, ok := c.entries[key.String()]
	gen := c.generations[key.String()]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, gen, nil
	}
	board := copyBoard(e.board)
	return &board, gen, nil
}

// Set stores a copy of board unless key was invalidated after generation was read
func (c *InMemoryBoardCache) Set(_ context.Context, key appqueue.BoardKey, board *appqueue.Board, generation uint64) error {
	if board == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key.String()] != generation {
		return nil
	}

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key.String()] = boardEntry{board: copyBoard(*board), expiresAt: now.Add(c.ttl)}
	return nil
}

// Invalidate removes the board for key
func (c *InMemoryBoardCache) Invalidate(_ context.Context, key appqueue.BoardKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
	c.generations[key.String()]++
	return nil
}

// Len returns the number of entries held
func (c *InMemoryBoardCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyBoard(b appqueue.Board) appqueue.Board {
	out := b
	out.Waiting = append([]appqueue.BoardEntry(nil), b.Waiting...)
	out.AllInProgress = append([]appqueue.BoardEntry(nil), b.AllInProgress...)
	out.Skipped = append([]appqueue.BoardEntry(nil), b.Skipped...)
	if b.InProgress != nil {
		ip := *b.InProgress
		out.InProgress = &ip
	}
	return out
}

var _ appqueue.BoardCache = (*InMemoryBoardCache)(nil)
