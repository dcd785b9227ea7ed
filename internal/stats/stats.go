// Package stats derives return, volatility, correlation and covariance
// estimates from per-asset price history. All computation is pure given
// its inputs; data-insufficiency is handled with documented fallbacks,
// never hard failures.
package stats

import (
	"log"
	"math"
	"os"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/observability"
)

// Statistical defaults. Lookbacks are in periods (days).
const (
	// DefaultVolatilityLookback is the window for volatility estimation.
	DefaultVolatilityLookback = 30

	// DefaultCorrelationLookback is the window for pairwise correlation.
	DefaultCorrelationLookback = 90

	// FallbackVolatility is used when a series is too short to estimate
	// volatility. Keeping optimization usable through data gaps beats
	// failing the whole request.
	FallbackVolatility = 0.30

	// PeriodsPerYear annualizes daily statistics.
	PeriodsPerYear = 365

	// VolatilityFloor guards divisions by per-asset volatility.
	VolatilityFloor = 0.0001
)

// Engine computes statistics over price series. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	logger *log.Logger
}

// NewEngine creates a statistics engine. A nil logger falls back to a
// stderr logger with the component prefix.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[stats] ", log.LstdFlags)
	}
	return &Engine{logger: logger}
}

// Returns produces the period-over-period simple returns of a series:
// (p[i] - p[i-1]) / p[i-1] over closing prices. Points with a zero
// previous close are skipped rather than producing Inf.
func Returns(points []*domain.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, (points[i].Close-prev)/prev)
	}
	return out
}

// Volatility returns the annualized standard deviation of daily returns
// over the last lookbackDays periods. With fewer than 2 data points it
// fails soft: the fallback volatility is returned and the condition is
// logged as a data-quality warning.
func (e *Engine) Volatility(points []*domain.PricePoint, lookbackDays int) float64 {
	if lookbackDays <= 0 {
		lookbackDays = DefaultVolatilityLookback
	}
	if len(points) > lookbackDays+1 {
		points = points[len(points)-lookbackDays-1:]
	}

	returns := Returns(points)
	if len(returns) < 2 {
		symbol := ""
		if len(points) > 0 {
			symbol = points[0].Symbol
		}
		e.logger.Printf("insufficient price history for %q (%d points), using fallback volatility %.2f",
			symbol, len(points), FallbackVolatility)
		observability.RecordDataQualityWarning("volatility_fallback")
		return FallbackVolatility
	}

	return stddev(returns) * math.Sqrt(PeriodsPerYear)
}

// Correlation computes the Pearson correlation of daily returns between
// two series, aligned by shared timestamps over the last lookbackDays
// periods. Fewer than 2 aligned points, or a zero standard deviation on
// either side, yields 0: no information, not an error.
func (e *Engine) Correlation(a, b []*domain.PricePoint, lookbackDays int) float64 {
	if lookbackDays <= 0 {
		lookbackDays = DefaultCorrelationLookback
	}

	closesA, closesB := alignCloses(a, b, lookbackDays)
	retA := closesToReturns(closesA)
	retB := closesToReturns(closesB)
	if len(retA) < 2 || len(retA) != len(retB) {
		return 0
	}

	meanA := mean(retA)
	meanB := mean(retB)
	var cov, varA, varB float64
	for i := range retA {
		da := retA[i] - meanA
		db := retB[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// alignCloses intersects two series on timestamp and returns the paired
// closing prices, limited to the trailing lookbackDays+1 shared points.
func alignCloses(a, b []*domain.PricePoint, lookbackDays int) ([]float64, []float64) {
	byTime := make(map[int64]float64, len(b))
	for _, p := range b {
		byTime[p.Time] = p.Close
	}

	var closesA, closesB []float64
	for _, p := range a {
		if c, ok := byTime[p.Time]; ok {
			closesA = append(closesA, p.Close)
			closesB = append(closesB, c)
		}
	}
	if len(closesA) > lookbackDays+1 {
		closesA = closesA[len(closesA)-lookbackDays-1:]
		closesB = closesB[len(closesB)-lookbackDays-1:]
	}
	return closesA, closesB
}

// closesToReturns converts a close-price sequence to simple returns.
func closesToReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1])
	}
	return out
}

// mean calculates the arithmetic mean.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev calculates sample standard deviation (n-1 denominator).
func stddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mu := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		d := x - mu
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// AnnualizedChange estimates the annualized expected return of an
// asset. With a snapshot present the 24h change is scaled linearly to a
// year; otherwise the mean daily return of the series is scaled. Both
// are heuristics, not forecasts.
func (e *Engine) AnnualizedChange(snapshot *domain.MarketSnapshot, points []*domain.PricePoint) float64 {
	if snapshot != nil {
		return snapshot.Change24h * PeriodsPerYear
	}
	returns := Returns(points)
	if len(returns) == 0 {
		return 0
	}
	return mean(returns) * PeriodsPerYear
}
