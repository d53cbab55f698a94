// Package learn holds the small regressors and clustering helpers used by
// model-based imputation. Matrices are row-major [][]float64; missing cells
// are math.NaN().
package learn

import (
	"errors"
	"math"
)

var (
	ErrEmpty         = errors.New("learn: empty input")
	ErrShape         = errors.New("learn: inconsistent shape")
	ErrNotFitted     = errors.New("learn: model not fitted")
	ErrTooFewSamples = errors.New("learn: fewer samples than clusters")
)

// Regressor is a supervised model over float features
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// EstimatorFactory returns a fresh, unfitted regressor
type EstimatorFactory func() Regressor

func checkXY(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, ErrEmpty
	}
	if len(y) != n {
		return 0, 0, ErrShape
	}
	p = len(X[0])
	for _, row := range X {
		if len(row) != p {
			return 0, 0, ErrShape
		}
	}
	return n, p, nil
}

func columnMeans(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	p := len(X[0])
	sums := make([]float64, p)
	counts := make([]int, p)
	for _, row := range X {
		for j, v := range row {
			if !math.IsNaN(v) {
				sums[j] += v
				counts[j]++
			}
		}
	}
	for j := range sums {
		if counts[j] == 0 {
			sums[j] = math.NaN()
			continue
		}
		sums[j] /= float64(counts[j])
	}
	return sums
}

func cloneMatrix(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
