// Package reporting renders optimization and rebalance results for humans.
package reporting

import (
	"time"

	"pollen-optimizer/internal/domain"
)

// Report is a complete optimization run summary.
type Report struct {
	GeneratedAt time.Time
	Strategy    string
	Degraded    bool

	Assets         []string
	CurrentWeights domain.Weights
	TargetWeights  domain.Weights

	Metrics *domain.PortfolioMetrics
	Check   *domain.RebalanceCheck
	Plan    *domain.RebalancePlan
}

// AllocationRow is one asset's before/after weights for tabular output.
type AllocationRow struct {
	Symbol        string
	CurrentWeight float64
	TargetWeight  float64
	Delta         float64
}
