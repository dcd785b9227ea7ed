package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/observability"
	"pollen-optimizer/internal/storage"
)

// DefaultTTL is the snapshot freshness window.
const DefaultTTL = 5 * time.Minute

// SnapshotCache serves market snapshots with TTL-based invalidation.
// Staleness is an explicit timestamp comparison against LastUpdated; a
// stale or missing entry triggers an upstream refresh whose result
// replaces the cached value. Refreshes are idempotent (last write
// wins), so no locking is needed around concurrent refreshes of the
// same symbol.
type SnapshotCache struct {
	provider Provider
	store    storage.SnapshotStore
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger
}

// NewSnapshotCache creates a cache over the given store and upstream
// provider. A non-positive ttl selects the default; a nil logger falls
// back to a stderr logger with the component prefix.
func NewSnapshotCache(provider Provider, store storage.SnapshotStore, ttl time.Duration, logger *log.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[marketdata] ", log.LstdFlags)
	}
	return &SnapshotCache{
		provider: provider,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Get returns a fresh snapshot for the symbol, refreshing from the
// provider when the cached entry is stale or missing. If the refresh
// fails but a stale entry exists, the stale entry is returned with a
// warning: optimization prefers degraded data over no data.
func (c *SnapshotCache) Get(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	cached, err := c.store.Get(ctx, symbol)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("read snapshot cache: %w", err)
	}

	if cached != nil && !cached.Stale(c.now(), c.ttl) {
		observability.RecordSnapshotCacheHit()
		return cached, nil
	}
	observability.RecordSnapshotCacheMiss()

	fresh, err := c.provider.Snapshot(ctx, symbol)
	if err != nil {
		if cached != nil {
			c.logger.Printf("refresh failed for %q, serving stale snapshot: %v", symbol, err)
			return cached, nil
		}
		return nil, fmt.Errorf("fetch snapshot for %q: %w", symbol, err)
	}
	observability.RecordSnapshotCacheRefresh()

	if err := c.store.Put(ctx, fresh); err != nil {
		// The fresh value is still valid for the caller.
		c.logger.Printf("store snapshot for %q: %v", symbol, err)
	}
	return fresh, nil
}

// GetAll fetches snapshots for every symbol, skipping the ones that
// fail. The returned map contains only the symbols that resolved.
func (c *SnapshotCache) GetAll(ctx context.Context, symbols []string) map[string]*domain.MarketSnapshot {
	out := make(map[string]*domain.MarketSnapshot, len(symbols))
	for _, symbol := range symbols {
		snap, err := c.Get(ctx, symbol)
		if err != nil {
			c.logger.Printf("snapshot unavailable for %q: %v", symbol, err)
			continue
		}
		out[symbol] = snap
	}
	return out
}
