package domain

import "time"

// MarketSnapshot represents the latest market state for one asset.
// Snapshots are refreshed on a TTL basis by the market data cache;
// a stale snapshot is refetched and replaces the cached value atomically.
type MarketSnapshot struct {
	Symbol      string    // asset symbol, e.g. "BTC"
	Price       float64   // latest price in quote currency
	MarketCap   float64   // total market capitalization
	Change24h   float64   // 24h price change, fractional (0.05 = +5%)
	Volume24h   float64   // 24h traded volume
	LastUpdated time.Time // when the snapshot was fetched upstream
}

// Stale reports whether the snapshot is older than ttl at the given instant.
func (s *MarketSnapshot) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdated) > ttl
}
