package strategy

import "pollen-optimizer/internal/domain"

// Default per-asset weight bounds.
const (
	DefaultMinWeight = 0.01
	DefaultMaxWeight = 0.50
)

// Constraints are per-asset [min, max] weight bounds applied to raw
// strategy output.
type Constraints struct {
	MinWeight float64
	MaxWeight float64
}

// DefaultConstraints returns the 1%/50% bounds.
func DefaultConstraints() Constraints {
	return Constraints{MinWeight: DefaultMinWeight, MaxWeight: DefaultMaxWeight}
}

// Apply clamps each weight into [MinWeight, MaxWeight] and
// redistributes the net freed/borrowed weight proportionally across the
// assets still strictly inside their bounds. The second return reports
// whether any clamping happened.
//
// This is a single pass, not an iterative fixed point: if the
// redistribution pushes a previously flexible asset outside its bound,
// the overshoot is accepted. With infeasible bounds (e.g. N·MinWeight
// > 1) the output may not sum to exactly 1; callers that need an exact
// sum renormalize downstream.
func (c Constraints) Apply(weights domain.Weights) (domain.Weights, bool) {
	out := weights.Clone()
	pinned := make(map[string]bool, len(out))
	applied := false

	var pinnedSum float64
	for symbol, w := range out {
		switch {
		case w < c.MinWeight:
			out[symbol] = c.MinWeight
			pinned[symbol] = true
			pinnedSum += c.MinWeight
			applied = true
		case w > c.MaxWeight:
			out[symbol] = c.MaxWeight
			pinned[symbol] = true
			pinnedSum += c.MaxWeight
			applied = true
		}
	}
	if !applied {
		return out, false
	}

	var flexibleSum float64
	for symbol, w := range out {
		if !pinned[symbol] {
			flexibleSum += w
		}
	}
	if flexibleSum == 0 {
		// Every asset is pinned; nothing left to absorb the remainder.
		return out, true
	}

	remaining := 1 - pinnedSum
	scale := remaining / flexibleSum
	for symbol, w := range out {
		if !pinned[symbol] {
			out[symbol] = w * scale
		}
	}
	return out, true
}
