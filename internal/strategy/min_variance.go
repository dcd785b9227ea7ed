package strategy

import (
	"errors"
	"log"
	"os"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/observability"
	"pollen-optimizer/internal/solve"
	"pollen-optimizer/internal/stats"
)

// MinVariance finds the weights minimizing portfolio variance w'Σw
// subject to the weights summing to 1, by solving the augmented system
//
//	[Σ, 1; 1ᵗ, 0] · [w; λ] = [0; 1]
//
// No short-selling is enforced only by clamping the solution to ≥0 and
// renormalizing. On insufficient aligned history or a singular
// covariance matrix the strategy falls back to risk parity; the
// fallback is mandatory and logged as a degraded-mode event.
type MinVariance struct {
	logger *log.Logger
}

// NewMinVariance creates the strategy. A nil logger falls back to a
// stderr logger with the component prefix.
func NewMinVariance(logger *log.Logger) *MinVariance {
	if logger == nil {
		logger = log.New(os.Stderr, "[strategy] ", log.LstdFlags)
	}
	return &MinVariance{logger: logger}
}

// Type returns the strategy identifier.
func (s *MinVariance) Type() domain.StrategyType { return domain.StrategyMinVariance }

// Allocate solves the constrained minimum-variance system.
func (s *MinVariance) Allocate(input *Input) (*Result, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	// Degenerate but well-defined: a single asset takes full weight.
	if len(input.Assets) == 1 {
		return &Result{Weights: domain.Weights{input.Assets[0]: 1}}, nil
	}

	aligned := stats.AlignSeries(seriesForAssets(input))
	cov, err := stats.CovarianceMatrix(aligned, input.Assets)
	if err != nil {
		if errors.Is(err, stats.ErrInsufficientData) {
			return s.fallback(input, "insufficient_data"), nil
		}
		return nil, err
	}

	weights, err := solveMinVariance(cov, input.Assets)
	if err != nil {
		if errors.Is(err, solve.ErrSingularMatrix) {
			return s.fallback(input, "singular_matrix"), nil
		}
		return nil, err
	}
	return &Result{Weights: weights}, nil
}

// fallback switches to risk parity and records the degraded-mode event.
func (s *MinVariance) fallback(input *Input, reason string) *Result {
	s.logger.Printf("min-variance degraded to risk parity: %s", reason)
	observability.RecordDegradedFallback(reason)
	return &Result{Weights: riskParityWeights(input), Degraded: true}
}

// seriesForAssets restricts the input series map to the universe so
// alignment is not collapsed by unrelated symbols.
func seriesForAssets(input *Input) map[string][]*domain.PricePoint {
	out := make(map[string][]*domain.PricePoint, len(input.Assets))
	for _, symbol := range input.Assets {
		out[symbol] = input.Series[symbol]
	}
	return out
}

// solveMinVariance builds and solves the (N+1)x(N+1) augmented system,
// then clamps the solution to long-only weights summing to 1.
func solveMinVariance(cov [][]float64, assets []string) (domain.Weights, error) {
	n := len(assets)

	a := make([][]float64, n+1)
	for i := 0; i <= n; i++ {
		a[i] = make([]float64, n+1)
	}
	for i := 0; i < n; i++ {
		copy(a[i], cov[i])
		a[i][n] = 1
		a[n][i] = 1
	}
	b := make([]float64, n+1)
	b[n] = 1

	x, err := solve.Linear(a, b)
	if err != nil {
		return nil, err
	}

	// Clamp to >= 0 and renormalize. The Lagrange multiplier x[n] is
	// discarded.
	var sum float64
	for i := 0; i < n; i++ {
		if x[i] < 0 {
			x[i] = 0
		}
		sum += x[i]
	}
	if sum == 0 {
		return nil, solve.ErrSingularMatrix
	}

	weights := make(domain.Weights, n)
	for i, symbol := range assets {
		weights[symbol] = x[i] / sum
	}
	return weights, nil
}
