package strategy

import (
	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/stats"
)

// RiskParity allocates inversely to volatility so each asset carries a
// roughly equal risk contribution. Volatility estimates never hard-fail
// (short series yield the fallback estimate), so this strategy is
// guaranteed to succeed and serves as the minimum-variance fallback.
type RiskParity struct{}

// Type returns the strategy identifier.
func (s *RiskParity) Type() domain.StrategyType { return domain.StrategyRiskParity }

// Allocate computes weight[i] = (1/vol[i]) / Σ(1/vol[j]).
func (s *RiskParity) Allocate(input *Input) (*Result, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	return &Result{Weights: riskParityWeights(input)}, nil
}

// riskParityWeights is the shared inverse-volatility computation, also
// used as the minimum-variance degraded path. Volatilities are floored
// to avoid division by zero.
func riskParityWeights(input *Input) domain.Weights {
	inverse := make(map[string]float64, len(input.Assets))
	var total float64
	for _, symbol := range input.Assets {
		vol := input.Stats.Volatility(input.Series[symbol], stats.DefaultVolatilityLookback)
		if vol < stats.VolatilityFloor {
			vol = stats.VolatilityFloor
		}
		inverse[symbol] = 1 / vol
		total += inverse[symbol]
	}

	weights := make(domain.Weights, len(input.Assets))
	for _, symbol := range input.Assets {
		weights[symbol] = inverse[symbol] / total
	}
	return weights
}
