package cache

import (
	"context"
	"sync"
	"time"

	"stockwatch/models"
	"stockwatch/observability"
)

// DefaultTTL is how long a resolved record is served without going upstream
const DefaultTTL = 5 * time.Minute

// Store is what the resolver needs from a record cache
type Store interface {
	Get(ctx context.Context, symbol string) (*models.StockRecord, bool)
	Put(ctx context.Context, symbol string, record *models.StockRecord)
	Invalidate(ctx context.Context, symbol string)
}

type entry struct {
	record    *models.StockRecord
	fetchedAt time.Time
}

// RecordCache holds resolved records keyed by uppercase symbol. Expiry is checked
// lazily on read; a TTL of 0 disables caching.
type RecordCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a RecordCache. A nil clock uses time.Now.
func New(ttl time.Duration, now func() time.Time) *RecordCache {
	if now == nil {
		now = time.Now
	}
	return &RecordCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached record for symbol if it is younger than the TTL
func (c *RecordCache) Get(ctx context.Context, symbol string) (*models.StockRecord, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	hit := ok && c.fresh(e.fetchedAt)
	observability.GetMetrics().RecordCacheLookup("memory", hit)
	if !hit {
		return nil, false
	}
	return e.record, true
}

// Put stores record as fetched now, replacing any previous entry
func (c *RecordCache) Put(ctx context.Context, symbol string, record *models.StockRecord) {
	c.PutAt(symbol, record, c.now())
}

// PutAt stores record with an explicit fetch time
func (c *RecordCache) PutAt(symbol string, record *models.StockRecord, fetchedAt time.Time) {
	if record == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = entry{record: record, fetchedAt: fetchedAt}
}

// Invalidate drops symbol so the next Get misses
func (c *RecordCache) Invalidate(ctx context.Context, symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, symbol)
}

// Prune removes expired entries and returns how many were dropped
func (c *RecordCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for symbol, e := range c.entries {
		if !c.fresh(e.fetchedAt) {
			delete(c.entries, symbol)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries held, expired ones included until pruned
func (c *RecordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the cache's time-to-live duration.
func (c *RecordCache) TTL() time.Duration {
	return c.ttl
}

func (c *RecordCache) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.ttl
}
