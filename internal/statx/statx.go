// Package statx collects the column statistics shared by the outlier,
// imputation and normalization engines.
package statx

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"lazyprep/domain/core"
)

// Present drops NaN entries
func Present(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean of the present values
func Mean(xs []float64) (float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), core.ErrInsufficientData
	}
	return stats.Mean(p)
}

// Median of the present values
func Median(xs []float64) (float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), core.ErrInsufficientData
	}
	return stats.Median(p)
}

// StdSample is the sample standard deviation (n-1) of the present values
func StdSample(xs []float64) (float64, error) {
	p := Present(xs)
	if len(p) < 2 {
		return math.NaN(), core.ErrInsufficientData
	}
	return stats.StandardDeviationSample(p)
}

// StdPopulation is the population standard deviation of the present values
func StdPopulation(xs []float64) (float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), core.ErrInsufficientData
	}
	return stats.StandardDeviationPopulation(p)
}

// MinMax of the present values
func MinMax(xs []float64) (float64, float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), math.NaN(), core.ErrInsufficientData
	}
	lo, err := stats.Min(p)
	if err != nil {
		return lo, lo, err
	}
	hi, err := stats.Max(p)
	return lo, hi, err
}

// MAD is the unscaled median absolute deviation of the present values
func MAD(xs []float64) (float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), core.ErrInsufficientData
	}
	return stats.MedianAbsoluteDeviationPopulation(p)
}

// Quantile returns the q-quantile (0..1) of the present values using linear
// interpolation between closest ranks: position (n-1)*q.
func Quantile(xs []float64, q float64) (float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return math.NaN(), core.ErrInsufficientData
	}
	sort.Float64s(p)
	return quantileSorted(p, q), nil
}

// Quantiles evaluates several quantiles with one sort
func Quantiles(xs []float64, qs ...float64) ([]float64, error) {
	p := Present(xs)
	if len(p) == 0 {
		return nil, core.ErrInsufficientData
	}
	sort.Float64s(p)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = quantileSorted(p, q)
	}
	return out, nil
}

func quantileSorted(sorted []float64, q float64) float64 {
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Winsorize clips the present values to the [lower, 1-upper] tails by rank:
// the lowest floor(lower*n) values are raised to the next order statistic and
// the highest floor(upper*n) lowered likewise. NaN entries pass through.
func Winsorize(xs []float64, lower, upper float64) []float64 {
	p := Present(xs)
	out := make([]float64, len(xs))
	copy(out, xs)
	n := len(p)
	if n == 0 {
		return out
	}
	sort.Float64s(p)
	lowCut := int(lower * float64(n))
	highCut := int(upper * float64(n))
	if lowCut+highCut >= n {
		return out
	}
	lo := p[lowCut]
	hi := p[n-1-highCut]
	for i, x := range out {
		if math.IsNaN(x) {
			continue
		}
		if x < lo {
			out[i] = lo
		} else if x > hi {
			out[i] = hi
		}
	}
	return out
}

// Mode returns the most frequent present value; ties go to the smallest
func Mode(xs []float64) (float64, bool) {
	counts := make(map[float64]int)
	for _, x := range xs {
		if !math.IsNaN(x) {
			counts[x]++
		}
	}
	if len(counts) == 0 {
		return math.NaN(), false
	}
	best, bestN := math.Inf(1), -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, true
}

// CountMissing counts NaN entries
func CountMissing(xs []float64) int {
	n := 0
	for _, x := range xs {
		if math.IsNaN(x) {
			n++
		}
	}
	return n
}
