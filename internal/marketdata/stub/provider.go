// Package stub provides a deterministic in-memory market data provider
// for tests and fixture-driven runs.
package stub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pollen-optimizer/internal/domain"
)

// Provider serves pre-loaded series and snapshots. Symbols without
// data return errors, which is how tests exercise degraded paths.
type Provider struct {
	mu        sync.RWMutex
	series    map[string][]*domain.PricePoint
	snapshots map[string]*domain.MarketSnapshot

	// SnapshotCalls counts upstream snapshot fetches, for cache tests.
	SnapshotCalls int
}

// NewProvider creates an empty stub provider.
func NewProvider() *Provider {
	return &Provider{
		series:    make(map[string][]*domain.PricePoint),
		snapshots: make(map[string]*domain.MarketSnapshot),
	}
}

// SetSeries loads a price series for a symbol.
func (p *Provider) SetSeries(symbol string, points []*domain.PricePoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[symbol] = points
}

// SetSnapshot loads a snapshot for a symbol.
func (p *Provider) SetSnapshot(snapshot *domain.MarketSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[snapshot.Symbol] = snapshot
}

// PriceSeries returns the trailing lookbackDays points for a symbol.
func (p *Provider) PriceSeries(_ context.Context, symbol string, lookbackDays int) ([]*domain.PricePoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	points, ok := p.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no price series for %q", symbol)
	}
	if lookbackDays > 0 && len(points) > lookbackDays {
		points = points[len(points)-lookbackDays:]
	}
	out := make([]*domain.PricePoint, len(points))
	copy(out, points)
	return out, nil
}

// Snapshot returns the loaded snapshot for a symbol.
func (p *Provider) Snapshot(_ context.Context, symbol string) (*domain.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.SnapshotCalls++
	snap, ok := p.snapshots[symbol]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %q", symbol)
	}
	snapCopy := *snap
	return &snapCopy, nil
}

// GenerateSeries builds a deterministic synthetic series for a symbol:
// a smooth drift plus a repeating wobble, good enough to exercise
// statistics without randomness.
func GenerateSeries(symbol string, days int, startPrice, dailyDrift float64) []*domain.PricePoint {
	points := make([]*domain.PricePoint, 0, days)
	price := startPrice
	for day := 0; day < days; day++ {
		wobble := 1 + 0.01*float64(day%7-3)/3
		open := price
		close := price * (1 + dailyDrift) * wobble
		points = append(points, &domain.PricePoint{
			Symbol: symbol,
			Time:   int64(day),
			Open:   open,
			High:   max(open, close) * 1.005,
			Low:    min(open, close) * 0.995,
			Close:  close,
			Volume: 1000 + 10*float64(day),
		})
		price = close
	}
	return points
}

// GenerateSnapshot builds a snapshot consistent with a generated
// series' final price.
func GenerateSnapshot(symbol string, price, marketCap float64, now time.Time) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Symbol:      symbol,
		Price:       price,
		MarketCap:   marketCap,
		Change24h:   0.01,
		Volume24h:   marketCap * 0.05,
		LastUpdated: now,
	}
}
