package stats

import (
	"errors"
	"sort"

	"pollen-optimizer/internal/domain"
)

// MinCovarianceRows is the minimum number of aligned return rows
// required for a numerically stable covariance estimate.
const MinCovarianceRows = 30

// ErrInsufficientData is returned when too few aligned observations
// exist for covariance estimation. Callers fall back per their own
// rules instead of propagating this as a hard failure.
var ErrInsufficientData = errors.New("insufficient aligned data for covariance estimation")

// AlignSeries intersects the price series of all symbols on shared
// timestamps and returns one row per shared date, ascending by time.
// Symbols with no series contribute nothing, collapsing the
// intersection to empty.
func AlignSeries(seriesBySymbol map[string][]*domain.PricePoint) []domain.ReturnRow {
	if len(seriesBySymbol) == 0 {
		return nil
	}

	// Count how many symbols cover each timestamp.
	type dateEntry struct {
		count  int
		prices map[string]float64
	}
	dates := make(map[int64]*dateEntry)
	for symbol, points := range seriesBySymbol {
		for _, p := range points {
			entry, ok := dates[p.Time]
			if !ok {
				entry = &dateEntry{prices: make(map[string]float64, len(seriesBySymbol))}
				dates[p.Time] = entry
			}
			if _, dup := entry.prices[symbol]; !dup {
				entry.count++
			}
			entry.prices[symbol] = p.Close
		}
	}

	rows := make([]domain.ReturnRow, 0, len(dates))
	for t, entry := range dates {
		if entry.count == len(seriesBySymbol) {
			rows = append(rows, domain.ReturnRow{Time: t, Prices: entry.prices})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })
	return rows
}

// CovarianceMatrix computes the sample covariance matrix of daily
// returns over pre-aligned price rows, in the given symbol order.
// Covariance uses the (n-1) denominator and each pair is computed once
// and mirrored, so the matrix is symmetric by construction. Requires at
// least MinCovarianceRows return observations after differencing.
func CovarianceMatrix(rows []domain.ReturnRow, symbols []string) ([][]float64, error) {
	n := len(symbols)
	if n == 0 {
		return nil, ErrInsufficientData
	}
	if len(rows)-1 < MinCovarianceRows {
		return nil, ErrInsufficientData
	}

	// Per-symbol return sequences from consecutive aligned rows.
	returns := make([][]float64, n)
	for i, symbol := range symbols {
		seq := make([]float64, 0, len(rows)-1)
		for r := 1; r < len(rows); r++ {
			prev := rows[r-1].Prices[symbol]
			if prev == 0 {
				seq = append(seq, 0)
				continue
			}
			seq = append(seq, (rows[r].Prices[symbol]-prev)/prev)
		}
		returns[i] = seq
	}

	means := make([]float64, n)
	for i := range returns {
		means[i] = mean(returns[i])
	}

	obs := len(rows) - 1
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < obs; k++ {
				sum += (returns[i][k] - means[i]) * (returns[j][k] - means[j])
			}
			cov := sum / float64(obs-1)
			matrix[i][j] = cov
			matrix[j][i] = cov
		}
	}
	return matrix, nil
}
