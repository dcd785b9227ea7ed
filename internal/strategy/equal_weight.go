package strategy

import "pollen-optimizer/internal/domain"

// EqualWeight allocates 1/N to each of N assets. No market data
// required; always succeeds.
type EqualWeight struct{}

// Type returns the strategy identifier.
func (s *EqualWeight) Type() domain.StrategyType { return domain.StrategyEqualWeight }

// Allocate assigns every asset the same weight.
func (s *EqualWeight) Allocate(input *Input) (*Result, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	weights := make(domain.Weights, len(input.Assets))
	share := 1.0 / float64(len(input.Assets))
	for _, symbol := range input.Assets {
		weights[symbol] = share
	}
	return &Result{Weights: weights}, nil
}
