// Package metrics assembles portfolio-level performance estimates from
// weights and per-asset statistics.
package metrics

import (
	"math"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/stats"
)

// DefaultRiskFreeRate is the annual risk-free rate used in the Sharpe
// ratio when no rate is configured.
const DefaultRiskFreeRate = 0.02

// Calculator computes portfolio metrics. Construct with NewCalculator.
type Calculator struct {
	stats        *stats.Engine
	riskFreeRate float64
}

// NewCalculator creates a metrics calculator. A non-positive rate
// selects the default.
func NewCalculator(engine *stats.Engine, riskFreeRate float64) *Calculator {
	if riskFreeRate <= 0 {
		riskFreeRate = DefaultRiskFreeRate
	}
	return &Calculator{stats: engine, riskFreeRate: riskFreeRate}
}

// Compute derives expected return, volatility and Sharpe ratio for the
// given weights. Portfolio variance combines per-asset variances with
// pairwise correlation:
//
//	Σ wᵢ²·volᵢ² + 2·Σ_{i<j} wᵢ·wⱼ·volᵢ·volⱼ·ρᵢⱼ
//
// Metrics are recomputed on every call; nothing is cached or persisted.
func (c *Calculator) Compute(
	assets []string,
	weights domain.Weights,
	snapshots map[string]*domain.MarketSnapshot,
	series map[string][]*domain.PricePoint,
) *domain.PortfolioMetrics {
	perAsset := make(map[string]domain.AssetMetrics, len(assets))
	vols := make([]float64, len(assets))

	var expectedReturn float64
	for i, symbol := range assets {
		w := weights[symbol]
		ret := c.stats.AnnualizedChange(snapshots[symbol], series[symbol])
		vols[i] = c.stats.Volatility(series[symbol], stats.DefaultVolatilityLookback)

		expectedReturn += w * ret
		perAsset[symbol] = domain.AssetMetrics{
			Weight:         w,
			ExpectedReturn: ret,
			Volatility:     vols[i],
		}
	}

	var variance float64
	for i, symbol := range assets {
		w := weights[symbol]
		variance += w * w * vols[i] * vols[i]
	}
	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			corr := c.stats.Correlation(series[assets[i]], series[assets[j]], stats.DefaultCorrelationLookback)
			variance += 2 * weights[assets[i]] * weights[assets[j]] * vols[i] * vols[j] * corr
		}
	}
	if variance < 0 {
		// Correlation estimates can push the quadratic form slightly
		// below zero; treat as zero variance.
		variance = 0
	}
	volatility := math.Sqrt(variance)

	return &domain.PortfolioMetrics{
		ExpectedReturn: expectedReturn,
		Volatility:     volatility,
		SharpeRatio:    c.sharpe(expectedReturn, volatility),
		PerAsset:       perAsset,
	}
}

// sharpe guards the division with a volatility floor so a zero-risk
// estimate cannot blow up the ratio.
func (c *Calculator) sharpe(expectedReturn, volatility float64) float64 {
	if volatility < stats.VolatilityFloor {
		volatility = stats.VolatilityFloor
	}
	return (expectedReturn - c.riskFreeRate) / volatility
}
