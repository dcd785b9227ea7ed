// Package strategy implements the pluggable allocation strategies that
// turn market and statistical inputs into raw target weights.
package strategy

import (
	"errors"
	"fmt"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/stats"
)

// Package errors.
var (
	// ErrEmptyUniverse is a caller contract violation: strategies
	// require a non-empty asset list.
	ErrEmptyUniverse = errors.New("empty asset universe")

	// ErrNoMarketData is returned by market-cap weighting when no asset
	// in the universe has a snapshot.
	ErrNoMarketData = errors.New("no market snapshots available")
)

// Input holds all data needed to compute an allocation. Series and
// Snapshots are read-only to the strategy; missing entries degrade per
// each strategy's documented rules rather than failing the request.
type Input struct {
	Assets    []string
	Snapshots map[string]*domain.MarketSnapshot
	Series    map[string][]*domain.PricePoint
	Stats     *stats.Engine
}

// Result carries raw (pre-constraint) weights. Degraded marks that the
// strategy fell back to risk parity.
type Result struct {
	Weights  domain.Weights
	Degraded bool
}

// Allocator produces raw target weights for an asset universe.
type Allocator interface {
	// Allocate computes weights from the input. The returned vector
	// sums to 1 within tolerance but is not yet bound-constrained.
	Allocate(input *Input) (*Result, error)

	// Type returns the strategy identifier.
	Type() domain.StrategyType
}

// FromType creates the Allocator for a strategy type. The switch is
// exhaustive over the enum; an unmapped value is a programming error.
func FromType(t domain.StrategyType) (Allocator, error) {
	switch t {
	case domain.StrategyEqualWeight:
		return &EqualWeight{}, nil
	case domain.StrategyMarketCap:
		return &MarketCap{}, nil
	case domain.StrategyRiskParity:
		return &RiskParity{}, nil
	case domain.StrategyMinVariance:
		return NewMinVariance(nil), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %v", t)
	}
}

// validate enforces the caller contract shared by all strategies.
func validate(input *Input) error {
	if input == nil || len(input.Assets) == 0 {
		return ErrEmptyUniverse
	}
	return nil
}
