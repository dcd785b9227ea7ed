// Package storage defines the persistence boundaries of the optimizer.
// Price history and market snapshots are written by data ingestion and
// read-only to the optimization engine; allocations and plans are
// appended per request and never mutated.
package storage

import (
	"context"

	"pollen-optimizer/internal/domain"
)

// PriceHistoryStore caches per-asset OHLCV series within a bounded
// retention window.
type PriceHistoryStore interface {
	// Append adds points to their symbols' series. Points must arrive
	// in ascending time order per symbol; a duplicate (symbol, time)
	// returns ErrDuplicateKey. Implementations with a retention window
	// evict the oldest points once the window is exceeded.
	Append(ctx context.Context, points []*domain.PricePoint) error

	// GetBySymbol retrieves the retained series for a symbol, ordered
	// by time ASC. An unknown symbol yields an empty series, not an
	// error.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PricePoint, error)

	// GetByTimeRange retrieves points for a symbol within [start, end]
	// (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error)
}

// SnapshotStore holds the latest MarketSnapshot per symbol. Writes
// overwrite: concurrent refreshes of the same symbol converge to the
// same upstream truth, so last write wins.
type SnapshotStore interface {
	// Put stores or replaces the snapshot for its symbol.
	Put(ctx context.Context, snapshot *domain.MarketSnapshot) error

	// Get retrieves the snapshot for a symbol. Returns ErrNotFound if
	// no snapshot has been stored.
	Get(ctx context.Context, symbol string) (*domain.MarketSnapshot, error)
}

// AllocationStore persists optimization results.
type AllocationStore interface {
	// Insert appends a new result.
	Insert(ctx context.Context, result *domain.OptimizationResult) error

	// GetLatest retrieves the most recent result for a strategy.
	// Returns ErrNotFound when none exists.
	GetLatest(ctx context.Context, strategy domain.StrategyType) (*domain.OptimizationResult, error)
}

// RebalancePlanStore persists generated rebalance plans.
type RebalancePlanStore interface {
	// Insert appends a new plan.
	Insert(ctx context.Context, plan *domain.RebalancePlan) error

	// List retrieves the most recent plans, newest first, up to limit.
	List(ctx context.Context, limit int) ([]*domain.RebalancePlan, error)
}
