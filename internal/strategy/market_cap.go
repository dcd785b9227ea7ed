package strategy

import "pollen-optimizer/internal/domain"

// MarketCap allocates proportionally to market capitalization. An asset
// without a snapshot stays in the universe with weight 0 rather than
// failing the whole computation.
type MarketCap struct{}

// Type returns the strategy identifier.
func (s *MarketCap) Type() domain.StrategyType { return domain.StrategyMarketCap }

// Allocate computes weight[i] = marketCap[i] / Σ marketCap over assets
// with a snapshot.
func (s *MarketCap) Allocate(input *Input) (*Result, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	var totalCap float64
	for _, symbol := range input.Assets {
		if snap, ok := input.Snapshots[symbol]; ok && snap != nil {
			totalCap += snap.MarketCap
		}
	}
	if totalCap == 0 {
		return nil, ErrNoMarketData
	}

	weights := make(domain.Weights, len(input.Assets))
	for _, symbol := range input.Assets {
		if snap, ok := input.Snapshots[symbol]; ok && snap != nil {
			weights[symbol] = snap.MarketCap / totalCap
		} else {
			weights[symbol] = 0
		}
	}
	return &Result{Weights: weights}, nil
}
