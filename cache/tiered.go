package cache

import (
	"context"
	"time"

	"stockwatch/models"
	"stockwatch/observability"
)

// Backing is a durable record store consulted when memory misses.
// LoadRecord returns nil without error when nothing newer than notBefore exists.
type Backing interface {
	LoadRecord(ctx context.Context, symbol string, notBefore time.Time) (*models.StockRecord, error)
	SaveRecord(ctx context.Context, record *models.StockRecord) error
	DeleteSnapshot(ctx context.Context, symbol string) error
}

// Tiered puts a RecordCache in front of a Backing store. Writes go through to both;
// records promoted from the backing store keep their original fetch time so they
// expire on the same schedule they would have in memory.
type Tiered struct {
	memory  *RecordCache
	backing Backing
}

// NewTiered creates a two-tier cache
func NewTiered(memory *RecordCache, backing Backing) *Tiered {
	return &Tiered{memory: memory, backing: backing}
}

// Get checks memory first, then the backing store
func (t *Tiered) Get(ctx context.Context, symbol string) (*models.StockRecord, bool) {
	if record, ok := t.memory.Get(ctx, symbol); ok {
		return record, true
	}

	notBefore := t.memory.now().Add(-t.memory.ttl)
	record, err := t.backing.LoadRecord(ctx, symbol, notBefore)
	if err != nil {
		observability.Warn("snapshot lookup failed", "symbol", symbol, "error", err)
	}
	hit := err == nil && record != nil
	observability.GetMetrics().RecordCacheLookup("durable", hit)
	if !hit {
		return nil, false
	}

	t.memory.PutAt(symbol, record, record.FetchedAt)
	return record, true
}

// Put writes to memory and then to the backing store. A backing failure is
// logged; the in-memory entry still serves.
func (t *Tiered) Put(ctx context.Context, symbol string, record *models.StockRecord) {
	t.memory.Put(ctx, symbol, record)
	if record == nil {
		return
	}
	if err := t.backing.SaveRecord(ctx, record); err != nil {
		observability.Warn("snapshot save failed", "symbol", symbol, "error", err)
	}
}

// Invalidate drops symbol from both tiers so the next Get misses
func (t *Tiered) Invalidate(ctx context.Context, symbol string) {
	t.memory.Invalidate(ctx, symbol)
	if err := t.backing.DeleteSnapshot(ctx, symbol); err != nil {
		observability.Warn("snapshot delete failed", "symbol", symbol, "error", err)
	}
}

var (
	_ Store = (*RecordCache)(nil)
	_ Store = (*Tiered)(nil)
)
