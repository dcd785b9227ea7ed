package marketdata

import (
	"context"
	"fmt"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// StoreProvider serves market data out of the persistence layer. It is
// the provider for deployments where ingestion writes price history and
// snapshots independently of the optimizer.
type StoreProvider struct {
	prices    storage.PriceHistoryStore
	snapshots storage.SnapshotStore
}

var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider creates a provider backed by stores.
func NewStoreProvider(prices storage.PriceHistoryStore, snapshots storage.SnapshotStore) *StoreProvider {
	return &StoreProvider{prices: prices, snapshots: snapshots}
}

// PriceSeries returns the trailing lookbackDays points for a symbol.
func (p *StoreProvider) PriceSeries(ctx context.Context, symbol string, lookbackDays int) ([]*domain.PricePoint, error) {
	points, err := p.prices.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("price history for %s: %w", symbol, err)
	}
	if lookbackDays > 0 && len(points) > lookbackDays {
		points = points[len(points)-lookbackDays:]
	}
	return points, nil
}

// Snapshot returns the stored snapshot for a symbol.
func (p *StoreProvider) Snapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	return p.snapshots.Get(ctx, symbol)
}
