// Package marketdata defines the inbound market data boundary and the
// TTL snapshot cache in front of it.
package marketdata

import (
	"context"

	"pollen-optimizer/internal/domain"
)

// Provider supplies price history and current market snapshots per
// asset. Implementations live outside this core; failure for one
// symbol must not abort a whole optimization, callers degrade per their
// strategy's fallback rules.
type Provider interface {
	// PriceSeries returns up to lookbackDays of OHLCV points for the
	// symbol, ascending by time.
	PriceSeries(ctx context.Context, symbol string, lookbackDays int) ([]*domain.PricePoint, error)

	// Snapshot returns the current market snapshot for the symbol.
	Snapshot(ctx context.Context, symbol string) (*domain.MarketSnapshot, error)
}
