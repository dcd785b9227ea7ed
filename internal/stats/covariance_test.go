package stats

import (
	"errors"
	"testing"

	"pollen-optimizer/internal/domain"
)

// Helper to build aligned series over `days` daily timestamps with a
// deterministic price path per symbol.
func makeAlignedSeries(days int, symbols ...string) map[string][]*domain.PricePoint {
	series := make(map[string][]*domain.PricePoint, len(symbols))
	for s, symbol := range symbols {
		price := 100.0 * float64(s+1)
		points := make([]*domain.PricePoint, 0, days)
		for d := 0; d < days; d++ {
			// Different wobble phase per symbol keeps returns distinct.
			price *= 1 + 0.01*float64((d+s)%5-2)
			points = append(points, &domain.PricePoint{
				Symbol: symbol,
				Time:   int64(d),
				Close:  price,
			})
		}
		series[symbol] = points
	}
	return series
}

func TestAlignSeries_Intersection(t *testing.T) {
	series := map[string][]*domain.PricePoint{
		"BTC": {
			{Symbol: "BTC", Time: 1, Close: 100},
			{Symbol: "BTC", Time: 2, Close: 110},
			{Symbol: "BTC", Time: 3, Close: 120},
		},
		"ETH": {
			{Symbol: "ETH", Time: 2, Close: 50},
			{Symbol: "ETH", Time: 3, Close: 55},
			{Symbol: "ETH", Time: 4, Close: 60},
		},
	}

	rows := AlignSeries(series)
	if len(rows) != 2 {
		t.Fatalf("expected 2 aligned rows, got %d", len(rows))
	}
	if rows[0].Time != 2 || rows[1].Time != 3 {
		t.Errorf("expected times [2 3], got [%d %d]", rows[0].Time, rows[1].Time)
	}
	if rows[0].Prices["BTC"] != 110 || rows[0].Prices["ETH"] != 50 {
		t.Errorf("unexpected prices in first row: %v", rows[0].Prices)
	}
}

func TestAlignSeries_MissingSymbolCollapses(t *testing.T) {
	series := map[string][]*domain.PricePoint{
		"BTC": {{Symbol: "BTC", Time: 1, Close: 100}},
		"ETH": nil,
	}

	if rows := AlignSeries(series); len(rows) != 0 {
		t.Errorf("expected no rows when one symbol has no data, got %d", len(rows))
	}
}

func TestAlignSeries_Empty(t *testing.T) {
	if rows := AlignSeries(nil); rows != nil {
		t.Errorf("expected nil rows for empty input, got %v", rows)
	}
}

func TestCovarianceMatrix_InsufficientRows(t *testing.T) {
	rows := AlignSeries(makeAlignedSeries(10, "BTC", "ETH"))

	_, err := CovarianceMatrix(rows, []string{"BTC", "ETH"})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCovarianceMatrix_SymmetricPositiveDiagonal(t *testing.T) {
	symbols := []string{"BTC", "ETH", "SOL"}
	rows := AlignSeries(makeAlignedSeries(60, symbols...))

	matrix, err := CovarianceMatrix(rows, symbols)
	if err != nil {
		t.Fatalf("CovarianceMatrix failed: %v", err)
	}
	if len(matrix) != 3 {
		t.Fatalf("expected 3x3 matrix, got %dx?", len(matrix))
	}

	for i := range matrix {
		if matrix[i][i] < 0 {
			t.Errorf("negative variance at [%d][%d]: %f", i, i, matrix[i][i])
		}
		for j := range matrix[i] {
			if matrix[i][j] != matrix[j][i] {
				t.Errorf("matrix not symmetric at [%d][%d]: %f vs %f",
					i, j, matrix[i][j], matrix[j][i])
			}
		}
	}
}

func TestCovarianceMatrix_MatchesVolatilityVariance(t *testing.T) {
	symbols := []string{"BTC"}
	series := makeAlignedSeries(60, "BTC")
	rows := AlignSeries(series)

	matrix, err := CovarianceMatrix(rows, symbols)
	if err != nil {
		t.Fatalf("CovarianceMatrix failed: %v", err)
	}

	// Single-symbol covariance diagonal is the sample variance of the
	// return sequence.
	returns := Returns(series["BTC"])
	sd := stddev(returns)
	if want := sd * sd; !almostEqual(matrix[0][0], want, 1e-12) {
		t.Errorf("expected variance %g, got %g", want, matrix[0][0])
	}
}

func TestCovarianceMatrix_NoSymbols(t *testing.T) {
	rows := AlignSeries(makeAlignedSeries(60, "BTC"))
	if _, err := CovarianceMatrix(rows, nil); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for empty symbol list, got %v", err)
	}
}
