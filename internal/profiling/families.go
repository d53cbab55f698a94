package profiling

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"lazyprep/domain/core"
)

// densityFunc evaluates a fitted probability density
type densityFunc func(x float64) float64

// family fits one candidate distribution to a sample
type family struct {
	name string
	fit  func(sample []float64) (map[string]float64, densityFunc, error)
}

// candidateFamilies is the fixed fitting menu, in name order so ties resolve deterministically
var candidateFamilies = []family{
	{"cauchy", fitCauchy},
	{"chi2", fitChi2},
	{"expon", fitExpon},
	{"exponpow", fitExponPow},
	{"gamma", fitGamma},
	{"lognorm", fitLogNorm},
	{"norm", fitNorm},
	{"powerlaw", fitPowerLaw},
	{"rayleigh", fitRayleigh},
	{"uniform", fitUniform},
}

// FamilyNames lists the candidate family names in fitting order
func FamilyNames() []string {
	out := make([]string, len(candidateFamilies))
	for i, f := range candidateFamilies {
		out[i] = f.name
	}
	return out
}

func errDomain(name string) error {
	return fmt.Errorf("%w: %s outside support", core.ErrFitFailed, name)
}

// shifted evaluates a standard density at (x-loc)/scale, zero outside (lower, upper)
func shifted(pdf func(float64) float64, loc, scale, lower, upper float64) densityFunc {
	return func(x float64) float64 {
		z := (x - loc) / scale
		if z <= lower || z >= upper {
			return 0
		}
		return pdf(z) / scale
	}
}

func fitNorm(s []float64) (map[string]float64, densityFunc, error) {
	mu, _ := stats.Mean(s)
	sigma, _ := stats.StandardDeviationPopulation(s)
	if sigma <= 0 {
		return nil, nil, errDomain("norm")
	}
	d := distuv.Normal{Mu: mu, Sigma: sigma}
	return map[string]float64{"loc": mu, "scale": sigma}, d.Prob, nil
}

func fitExpon(s []float64) (map[string]float64, densityFunc, error) {
	lo, _ := stats.Min(s)
	mu, _ := stats.Mean(s)
	scale := mu - lo
	if scale <= 0 {
		return nil, nil, errDomain("expon")
	}
	d := distuv.Exponential{Rate: 1}
	return map[string]float64{"loc": lo, "scale": scale}, shifted(d.Prob, lo, scale, 0, math.Inf(1)), nil
}

func fitLogNorm(s []float64) (map[string]float64, densityFunc, error) {
	logs := make([]float64, len(s))
	for i, x := range s {
		if x <= 0 {
			return nil, nil, errDomain("lognorm")
		}
		logs[i] = math.Log(x)
	}
	mu, _ := stats.Mean(logs)
	sigma, _ := stats.StandardDeviationPopulation(logs)
	if sigma <= 0 {
		return nil, nil, errDomain("lognorm")
	}
	d := distuv.LogNormal{Mu: mu, Sigma: sigma}
	return map[string]float64{"s": sigma, "loc": 0, "scale": math.Exp(mu)}, shifted(d.Prob, 0, 1, 0, math.Inf(1)), nil
}

// positiveLoc places the location just below the sample minimum when the
// sample is not strictly positive
func positiveLoc(s []float64) float64 {
	lo, _ := stats.Min(s)
	if lo > 0 {
		return 0
	}
	hi, _ := stats.Max(s)
	return lo - 1e-3*(hi-lo)
}

func fitGamma(s []float64) (map[string]float64, densityFunc, error) {
	loc := positiveLoc(s)
	mu, _ := stats.Mean(s)
	v, _ := stats.PopulationVariance(s)
	mu -= loc
	if mu <= 0 || v <= 0 {
		return nil, nil, errDomain("gamma")
	}
	shape := mu * mu / v
	scale := v / mu
	d := distuv.Gamma{Alpha: shape, Beta: 1 / scale}
	return map[string]float64{"a": shape, "loc": loc, "scale": scale}, shifted(d.Prob, loc, 1, 0, math.Inf(1)), nil
}

func fitChi2(s []float64) (map[string]float64, densityFunc, error) {
	mu, _ := stats.Mean(s)
	v, _ := stats.PopulationVariance(s)
	k := v / 2
	if k <= 0 {
		return nil, nil, errDomain("chi2")
	}
	loc := mu - k
	d := distuv.ChiSquared{K: k}
	return map[string]float64{"df": k, "loc": loc, "scale": 1}, shifted(d.Prob, loc, 1, 0, math.Inf(1)), nil
}

func fitUniform(s []float64) (map[string]float64, densityFunc, error) {
	lo, _ := stats.Min(s)
	hi, _ := stats.Max(s)
	if hi <= lo {
		return nil, nil, errDomain("uniform")
	}
	d := distuv.Uniform{Min: lo, Max: hi}
	return map[string]float64{"loc": lo, "scale": hi - lo}, d.Prob, nil
}

func fitCauchy(s []float64) (map[string]float64, densityFunc, error) {
	sorted := append([]float64(nil), s...)
	sort.Float64s(sorted)
	med, _ := stats.Median(sorted)
	q1, _ := stats.Percentile(sorted, 25)
	q3, _ := stats.Percentile(sorted, 75)
	scale := (q3 - q1) / 2
	if scale <= 0 {
		return nil, nil, errDomain("cauchy")
	}
	d := distuv.StudentsT{Mu: med, Sigma: scale, Nu: 1}
	return map[string]float64{"loc": med, "scale": scale}, d.Prob, nil
}

func fitRayleigh(s []float64) (map[string]float64, densityFunc, error) {
	loc := positiveLoc(s)
	ss := 0.0
	for _, x := range s {
		ss += (x - loc) * (x - loc)
	}
	sigma := math.Sqrt(ss / (2 * float64(len(s))))
	if sigma <= 0 {
		return nil, nil, errDomain("rayleigh")
	}
	d := distuv.Weibull{K: 2, Lambda: sigma * math.Sqrt2}
	return map[string]float64{"loc": loc, "scale": sigma}, shifted(d.Prob, loc, 1, 0, math.Inf(1)), nil
}

// fitPowerLaw fits a*x^(a-1) on [loc, loc+scale], the Beta(a, 1) density
func fitPowerLaw(s []float64) (map[string]float64, densityFunc, error) {
	lo, _ := stats.Min(s)
	hi, _ := stats.Max(s)
	span := hi - lo
	if span <= 0 {
		return nil, nil, errDomain("powerlaw")
	}
	loc := lo - 1e-3*span
	scale := hi - loc
	sumLog := 0.0
	for _, x := range s {
		sumLog += math.Log((x - loc) / scale)
	}
	if sumLog >= 0 {
		return nil, nil, errDomain("powerlaw")
	}
	a := -float64(len(s)) / sumLog
	d := distuv.Beta{Alpha: a, Beta: 1}
	return map[string]float64{"a": a, "loc": loc, "scale": scale}, shifted(d.Prob, loc, scale, 0, 1), nil
}

// exponPowPDF is b*x^(b-1)*exp(1 + x^b - exp(x^b)) for x >= 0
func exponPowPDF(x, b float64) float64 {
	if x < 0 {
		return 0
	}
	xb := math.Pow(x, b)
	return b * math.Pow(x, b-1) * math.Exp(1+xb-math.Exp(xb))
}

// fitExponPow maximises the likelihood over (b, scale) with loc at the minimum
func fitExponPow(s []float64) (map[string]float64, densityFunc, error) {
	lo, _ := stats.Min(s)
	hi, _ := stats.Max(s)
	span := hi - lo
	if span <= 0 {
		return nil, nil, errDomain("exponpow")
	}
	loc := lo - 1e-3*span

	nll := func(p []float64) float64 {
		b, scale := math.Exp(p[0]), math.Exp(p[1])
		sum := 0.0
		for _, x := range s {
			v := exponPowPDF((x-loc)/scale, b) / scale
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			sum -= math.Log(v)
		}
		return sum
	}
	res, err := optimize.Minimize(optimize.Problem{Func: nll}, []float64{0, math.Log(span)}, nil, &optimize.NelderMead{})
	if err != nil && res == nil {
		return nil, nil, fmt.Errorf("%w: exponpow: %v", core.ErrFitFailed, err)
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, nil, errDomain("exponpow")
	}
	b, scale := math.Exp(res.X[0]), math.Exp(res.X[1])
	pdf := func(x float64) float64 { return exponPowPDF(x, b) }
	return map[string]float64{"b": b, "loc": loc, "scale": scale}, shifted(pdf, loc, scale, 0, math.Inf(1)), nil
}
