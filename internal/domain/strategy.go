package domain

import "fmt"

// StrategyType selects the allocation strategy. A typed enum keeps the
// dispatch exhaustive at compile time.
type StrategyType int

const (
	StrategyEqualWeight StrategyType = iota
	StrategyMarketCap
	StrategyRiskParity
	StrategyMinVariance
)

// strategyNames are the canonical wire/config identifiers.
var strategyNames = map[StrategyType]string{
	StrategyEqualWeight: "equal_weight",
	StrategyMarketCap:   "market_cap",
	StrategyRiskParity:  "risk_parity",
	StrategyMinVariance: "min_variance",
}

// String returns the canonical identifier for the strategy.
func (s StrategyType) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// ParseStrategyType maps a canonical identifier to its StrategyType.
func ParseStrategyType(name string) (StrategyType, error) {
	for st, n := range strategyNames {
		if n == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy type: %q", name)
}
