package domain

import (
	"math"
	"time"
)

// WeightSumTolerance is the accepted deviation from 1.0 for a weight
// vector after any transformation.
const WeightSumTolerance = 1e-4

// Weights maps asset symbol to allocation fraction in [0,1].
// The values of a valid vector sum to 1 within WeightSumTolerance.
type Weights map[string]float64

// Sum returns the total of all weight values.
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Clone returns a copy of the weight vector.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Normalize scales the vector so it sums to 1. A zero vector is
// returned unchanged.
func (w Weights) Normalize() Weights {
	sum := w.Sum()
	if sum == 0 {
		return w.Clone()
	}
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v / sum
	}
	return out
}

// MaxDeviation returns the largest absolute per-asset difference
// between two weight vectors. Symbols missing from either side count
// as weight 0.
func (w Weights) MaxDeviation(other Weights) float64 {
	var max float64
	for k, v := range w {
		if d := math.Abs(v - other[k]); d > max {
			max = d
		}
	}
	for k, v := range other {
		if _, ok := w[k]; !ok {
			if d := math.Abs(v); d > max {
				max = d
			}
		}
	}
	return max
}

// Turnover returns half the sum of absolute weight changes between two
// allocations, the conventional measure of total trading activity.
func (w Weights) Turnover(other Weights) float64 {
	var sum float64
	seen := make(map[string]struct{}, len(w))
	for k, v := range w {
		sum += math.Abs(v - other[k])
		seen[k] = struct{}{}
	}
	for k, v := range other {
		if _, ok := seen[k]; !ok {
			sum += math.Abs(v)
		}
	}
	return sum / 2
}

// AssetMetrics holds the per-asset components of portfolio metrics.
type AssetMetrics struct {
	Weight         float64
	ExpectedReturn float64
	Volatility     float64
}

// PortfolioMetrics aggregates expected performance of a weight vector.
// Metrics are derived on demand and never persisted as authoritative
// state.
type PortfolioMetrics struct {
	ExpectedReturn float64 // annualized, weight-averaged
	Volatility     float64 // annualized portfolio volatility
	SharpeRatio    float64 // (return - riskFreeRate) / volatility
	PerAsset       map[string]AssetMetrics
}

// Portfolio is a held allocation over a fixed asset universe.
type Portfolio struct {
	Assets          []string // fixed ordering of the universe
	Weights         Weights
	Metrics         *PortfolioMetrics
	PreviousWeights Weights // optional, for turnover reporting
}

// Allocation is a freshly computed target: weights plus their metrics.
type Allocation struct {
	Weights Weights
	Metrics *PortfolioMetrics
}

// OptimizationResult is the immutable outcome of one optimization
// request.
type OptimizationResult struct {
	Assets         []string
	Strategy       StrategyType
	CurrentWeights Weights
	TargetWeights  Weights
	Metrics        *PortfolioMetrics
	Degraded       bool // true if the strategy fell back to risk parity
	LastUpdated    time.Time
}
