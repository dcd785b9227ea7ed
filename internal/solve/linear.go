// Package solve provides a dense linear system solver used by the
// minimum-variance allocation strategy.
package solve

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularMatrix is returned when no non-zero pivot can be found.
// The minimum-variance strategy catches this and falls back to risk
// parity instead of propagating it.
var ErrSingularMatrix = errors.New("matrix is singular")

// Linear solves A·x = b by Gaussian elimination with partial pivoting:
// before each elimination step the row with the largest absolute value
// in the pivot column is swapped into the pivot position to bound
// numerical error. A and b are not modified.
func Linear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if n == 0 {
		return nil, fmt.Errorf("empty system")
	}
	if len(a) != n {
		return nil, fmt.Errorf("matrix has %d rows, vector has %d entries", len(a), n)
	}

	// Work on an augmented copy [A|b].
	aug := make([][]float64, n)
	for i := range aug {
		if len(a[i]) != n {
			return nil, fmt.Errorf("matrix row %d has %d columns, expected %d", i, len(a[i]), n)
		}
		aug[i] = make([]float64, n+1)
		copy(aug[i], a[i])
		aug[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		// Partial pivoting: find the row with the largest |value| in
		// this column at or below the diagonal.
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}
		if aug[pivot][col] == 0 {
			return nil, ErrSingularMatrix
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for row := col + 1; row < n; row++ {
			factor := aug[row][col] / aug[col][col]
			if factor == 0 {
				continue
			}
			for k := col; k <= n; k++ {
				aug[row][k] -= factor * aug[col][k]
			}
		}
	}

	// Back substitution.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	return x, nil
}
