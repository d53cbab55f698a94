package normalize

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"lazyprep/internal/statx"
)

// Epsilon keeps log, reciprocal and Box-Cox inputs away from zero
const Epsilon = 1e-5

const (
	lambdaBound = 5.0
	// quantile outputs are clipped to the normal quantiles of these probabilities
	quantileClip = 1e-7
)

// mapPresent applies fn to the non-missing values and keeps NaN positions
func mapPresent(xs []float64, fn func([]float64) []float64) []float64 {
	present := statx.Present(xs)
	out := make([]float64, len(xs))
	if len(present) == 0 {
		copy(out, xs)
		return out
	}
	mapped := fn(present)
	k := 0
	for i, x := range xs {
		if math.IsNaN(x) {
			out[i] = x
			continue
		}
		out[i] = mapped[k]
		k++
	}
	return out
}

// Standardize centers to zero mean and scales to unit population variance.
// A constant column is only centered.
func Standardize(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		mean, std := stat.PopMeanStdDev(p, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		out := make([]float64, len(p))
		for i, x := range p {
			out[i] = (x - mean) / std
		}
		return out
	})
}

// MinMax scales to [0, 1]; a constant column maps to 0
func MinMax(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		lo, hi := p[0], p[0]
		for _, x := range p {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
		span := hi - lo
		if span == 0 {
			span = 1
		}
		out := make([]float64, len(p))
		for i, x := range p {
			out[i] = (x - lo) / span
		}
		return out
	})
}

// shiftBelow moves the values up by their minimum when any value is at or
// below floor, so the smallest becomes zero.
func shiftBelow(p []float64, floor float64) []float64 {
	lo := p[0]
	for _, x := range p {
		lo = math.Min(lo, x)
	}
	out := append([]float64(nil), p...)
	if lo > floor {
		return out
	}
	for i := range out {
		out[i] -= lo
	}
	return out
}

// Log1p applies log(1+x), shifting the column when it reaches -1
func Log1p(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		out := shiftBelow(p, -1)
		for i, x := range out {
			out[i] = math.Log1p(x)
		}
		return out
	})
}

// SqrtReciprocal applies 1/sqrt(x+eps), shifting the column when x+eps would not be positive
func SqrtReciprocal(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		out := shiftBelow(p, -Epsilon)
		for i, x := range out {
			out[i] = 1 / math.Sqrt(x+Epsilon)
		}
		return out
	})
}

func yeoJohnson(x, lambda float64) float64 {
	if x >= 0 {
		if math.Abs(lambda) < 1e-8 {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if math.Abs(lambda-2) < 1e-8 {
		return -math.Log1p(-x)
	}
	return -(math.Pow(1-x, 2-lambda) - 1) / (2 - lambda)
}

func boxCox(x, lambda float64) float64 {
	if math.Abs(lambda) < 1e-8 {
		return math.Log(x)
	}
	return (math.Pow(x, lambda) - 1) / lambda
}

// fitLambda maximizes a profile log-likelihood over [-5, 5]
func fitLambda(llf func(lambda float64) float64) float64 {
	clamp := func(l float64) float64 { return math.Max(-lambdaBound, math.Min(lambdaBound, l)) }
	problem := optimize.Problem{Func: func(x []float64) float64 {
		v := -llf(clamp(x[0]))
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		return v
	}}
	res, err := optimize.Minimize(problem, []float64{1}, nil, &optimize.NelderMead{})
	if res == nil || (err != nil && math.IsInf(res.F, 0)) {
		return 1
	}
	return clamp(res.X[0])
}

func isConstant(p []float64) bool {
	for _, x := range p[1:] {
		if x != p[0] {
			return false
		}
	}
	return true
}

// YeoJohnsonLambda is the maximum likelihood Yeo-Johnson exponent
func YeoJohnsonLambda(p []float64) float64 {
	if len(p) < 2 || isConstant(p) {
		return 1
	}
	n := float64(len(p))
	var logSum float64
	for _, x := range p {
		logSum += math.Copysign(math.Log1p(math.Abs(x)), x)
	}
	buf := make([]float64, len(p))
	return fitLambda(func(l float64) float64 {
		for i, x := range p {
			buf[i] = yeoJohnson(x, l)
		}
		v := stat.PopVariance(buf, nil)
		return -n/2*math.Log(v) + (l-1)*logSum
	})
}

// BoxCoxLambda is the maximum likelihood Box-Cox exponent; p must be positive
func BoxCoxLambda(p []float64) float64 {
	if len(p) < 2 || isConstant(p) {
		return 1
	}
	n := float64(len(p))
	var logSum float64
	for _, x := range p {
		logSum += math.Log(x)
	}
	buf := make([]float64, len(p))
	return fitLambda(func(l float64) float64 {
		for i, x := range p {
			buf[i] = boxCox(x, l)
		}
		v := stat.PopVariance(buf, nil)
		return (l-1)*logSum - n/2*math.Log(v)
	})
}

// YeoJohnson fits lambda, transforms, then standardizes
func YeoJohnson(xs []float64) []float64 {
	return Standardize(mapPresent(xs, func(p []float64) []float64 {
		lambda := YeoJohnsonLambda(p)
		out := make([]float64, len(p))
		for i, x := range p {
			out[i] = yeoJohnson(x, lambda)
		}
		return out
	}))
}

// BoxCox shifts to strictly positive (x - min + eps), fits lambda and
// transforms without standardizing.
func BoxCox(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		lo := p[0]
		for _, x := range p {
			lo = math.Min(lo, x)
		}
		pos := make([]float64, len(p))
		for i, x := range p {
			pos[i] = x - lo + Epsilon
		}
		lambda := BoxCoxLambda(pos)
		for i, x := range pos {
			pos[i] = boxCox(x, lambda)
		}
		return pos
	})
}

// QuantileNormal maps each value's empirical CDF position through the
// standard normal quantile function. Tied values share the mean of their
// positions.
func QuantileNormal(xs []float64) []float64 {
	return mapPresent(xs, func(p []float64) []float64 {
		sorted := append([]float64(nil), p...)
		sort.Float64s(sorted)
		n := len(sorted)
		lo := distuv.UnitNormal.Quantile(quantileClip)
		hi := distuv.UnitNormal.Quantile(1 - quantileClip)
		out := make([]float64, n)
		for i, x := range p {
			if n == 1 {
				out[i] = 0
				continue
			}
			first := sort.SearchFloat64s(sorted, x)
			last := sort.Search(n, func(k int) bool { return sorted[k] > x }) - 1
			q := (float64(first) + float64(last)) / 2 / float64(n-1)
			q = math.Max(quantileClip, math.Min(1-quantileClip, q))
			out[i] = math.Max(lo, math.Min(hi, distuv.UnitNormal.Quantile(q)))
		}
		return out
	})
}
