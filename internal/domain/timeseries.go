package domain

// PricePoint represents one OHLCV observation for an asset.
// Points are immutable once recorded.
type PricePoint struct {
	Symbol string  // asset symbol
	Time   int64   // unix day/period index, ascending within a series
	Open   float64 // opening price
	High   float64 // period high
	Low    float64 // period low
	Close  float64 // closing price
	Volume float64 // traded volume
}

// ReturnRow is one date's aligned closing prices across the asset
// universe, keyed by symbol. Rows are produced by series alignment and
// consumed by covariance estimation.
type ReturnRow struct {
	Time   int64
	Prices map[string]float64
}
