// Package rebalance decides whether a portfolio should be rebalanced
// and turns a target allocation into an executable trade plan with
// heuristic cost estimates.
package rebalance

import (
	"fmt"

	"pollen-optimizer/internal/domain"
)

// Default decision thresholds.
const (
	DefaultDeviationThreshold = 0.05 // 5% max per-asset drift
	DefaultSharpeThreshold    = 0.1  // minimum Sharpe improvement
)

// Thresholds configure the needs-rebalance test.
type Thresholds struct {
	MaxDeviation      float64
	SharpeImprovement float64
}

// DefaultThresholds returns the standard 5% / 0.1 thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxDeviation:      DefaultDeviationThreshold,
		SharpeImprovement: DefaultSharpeThreshold,
	}
}

// NeedsRebalancing reports whether the portfolio should be rebalanced
// toward the target allocation: true when the maximum per-asset weight
// deviation or the Sharpe improvement crosses its threshold, gated by
// the correlation-stability check.
func NeedsRebalancing(portfolio *domain.Portfolio, target *domain.Allocation, thresholds Thresholds) *domain.RebalanceCheck {
	check := &domain.RebalanceCheck{
		MaxDeviation:      portfolio.Weights.MaxDeviation(target.Weights),
		CorrelationStable: correlationStable(),
	}
	if portfolio.Metrics != nil && target.Metrics != nil {
		check.SharpeImprovement = target.Metrics.SharpeRatio - portfolio.Metrics.SharpeRatio
	}

	if check.MaxDeviation >= thresholds.MaxDeviation {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("max weight deviation %.4f >= threshold %.4f", check.MaxDeviation, thresholds.MaxDeviation))
	}
	if check.SharpeImprovement >= thresholds.SharpeImprovement {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("sharpe improvement %.4f >= threshold %.4f", check.SharpeImprovement, thresholds.SharpeImprovement))
	}

	check.NeedsRebalance = len(check.Reasons) > 0 && check.CorrelationStable
	return check
}

// correlationStable is a documented placeholder: real correlation-change
// detection is an open extension point and no behavior beyond "always
// true" is required today.
func correlationStable() bool {
	return true
}
