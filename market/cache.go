package market

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"
)

// CachedBackend memoizes successful lookups of another Backend for a fixed
// TTL. Failures are never cached.
type CachedBackend struct {
	backend    Backend
	ttl        time.Duration
	maxEntries int
	log        *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	items   map[string]cacheEntry
	nextIdx int64
}

type cacheEntry struct {
	snap      *Snapshot
	expiry    time.Time
	insertIdx int64
}

// NewCachedBackend wraps backend. A non-positive maxEntries means unbounded.
func NewCachedBackend(backend Backend, ttl time.Duration, maxEntries int, logger *log.Logger) *CachedBackend {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &CachedBackend{
		backend:    backend,
		ttl:        ttl,
		maxEntries: maxEntries,
		log:        logger,
		now:        time.Now,
		items:      make(map[string]cacheEntry),
	}
}

func cacheKey(symbol string, r DateRange) string {
	return symbol + "|" + r.String()
}

func (c *CachedBackend) Lookup(ctx context.Context, symbol string, r DateRange) (*Snapshot, error) {
	symbol = NormalizeSymbol(symbol)
	key := cacheKey(symbol, r)

	c.mu.Lock()
	e, ok := c.items[key]
	if ok && c.now().Before(e.expiry) {
		c.mu.Unlock()
		c.log.Debug().Str("symbol", symbol).Str("range", r.String()).Msg("quote cache hit")
		return e.snap, nil
	}
	if ok {
		delete(c.items, key)
	}
	c.mu.Unlock()

	snap, err := c.backend.Lookup(ctx, symbol, r)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.items[key] = cacheEntry{
		snap:      snap,
		expiry:    c.now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++
	return snap, nil
}

// Len returns the number of cached entries, expired ones included.
func (c *CachedBackend) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *CachedBackend) evictOldestLocked() {
	var oldestKey string
	var oldestIdx int64 = -1
	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
