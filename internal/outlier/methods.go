package outlier

import (
	"math"

	"lazyprep/internal/statx"
)

// Each mask marks rows to keep. Missing values are always kept. A nil mask
// means the statistic could not be computed and nothing is removed.

func boundsMask(xs []float64, lo, hi float64) []bool {
	keep := make([]bool, len(xs))
	for i, x := range xs {
		keep[i] = math.IsNaN(x) || (x >= lo && x <= hi)
	}
	return keep
}

func iqrBounds(xs []float64) (float64, float64, bool) {
	q, err := statx.Quantiles(xs, 0.25, 0.75)
	if err != nil {
		return 0, 0, false
	}
	iqr := q[1] - q[0]
	return q[0] - 1.5*iqr, q[1] + 1.5*iqr, true
}

func iqrMask(xs []float64) []bool {
	lo, hi, ok := iqrBounds(xs)
	if !ok {
		return nil
	}
	return boundsMask(xs, lo, hi)
}

func zScoreMask(xs []float64) []bool {
	mean, err := statx.Mean(xs)
	if err != nil {
		return nil
	}
	sd, err := statx.StdSample(xs)
	if err != nil || sd == 0 {
		return nil
	}
	keep := make([]bool, len(xs))
	for i, x := range xs {
		keep[i] = math.IsNaN(x) || math.Abs((x-mean)/sd) <= 3
	}
	return keep
}

func percentileMask(xs []float64) []bool {
	q, err := statx.Quantiles(xs, 0.01, 0.99)
	if err != nil {
		return nil
	}
	return boundsMask(xs, q[0], q[1])
}

func modifiedZMask(xs []float64) []bool {
	med, err := statx.Median(xs)
	if err != nil {
		return nil
	}
	mad, err := statx.MAD(xs)
	if err != nil || mad == 0 {
		return nil
	}
	keep := make([]bool, len(xs))
	for i, x := range xs {
		keep[i] = math.IsNaN(x) || math.Abs(0.6745*(x-med)/mad) <= 3.5
	}
	return keep
}

func rangeMask(xs []float64) []bool {
	lo, hi, err := statx.MinMax(xs)
	if err != nil {
		return nil
	}
	keep := make([]bool, len(xs))
	for i, x := range xs {
		keep[i] = math.IsNaN(x) || (x != lo && x != hi)
	}
	return keep
}

func madMask(xs []float64) []bool {
	med, err := statx.Median(xs)
	if err != nil {
		return nil
	}
	mad, err := statx.MAD(xs)
	if err != nil {
		return nil
	}
	return boundsMask(xs, med-3*mad, med+3*mad)
}

// logIQRMask reports false when any present value is non-positive
func logIQRMask(xs []float64) ([]bool, bool) {
	logs := make([]float64, len(xs))
	for i, x := range xs {
		switch {
		case math.IsNaN(x):
			logs[i] = x
		case x <= 0:
			return nil, false
		default:
			logs[i] = math.Log(x)
		}
	}
	lo, hi, ok := iqrBounds(logs)
	if !ok {
		return nil, true
	}
	return boundsMask(xs, math.Exp(lo), math.Exp(hi)), true
}
