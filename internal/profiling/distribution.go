package profiling

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"lazyprep/domain/core"
	"lazyprep/domain/strategy"
)

// FitOptions bounds distribution fitting
type FitOptions struct {
	SampleSize int
	Seed       uint64
	Bins       int
	Timeout    time.Duration
}

// DefaultFitOptions matches the documented analyzer defaults
func DefaultFitOptions() FitOptions {
	return FitOptions{SampleSize: 1500, Seed: 42, Bins: 100, Timeout: 10 * time.Second}
}

// FitResult is the best-scoring family for a sample
type FitResult struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
	SSE    float64            `json:"sse"`
	// Scores holds the SSE of every family that produced a finite score
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Failed returns the fit-failed marker result
func Failed() FitResult {
	return FitResult{Name: strategy.FitFailed}
}

// DistributionFitter scores candidate families against an empirical density
type DistributionFitter struct {
	opts FitOptions
}

// NewDistributionFitter creates a fitter
func NewDistributionFitter(opts FitOptions) *DistributionFitter {
	d := DefaultFitOptions()
	if opts.SampleSize <= 0 {
		opts.SampleSize = d.SampleSize
	}
	if opts.Bins <= 0 {
		opts.Bins = d.Bins
	}
	if opts.Timeout <= 0 {
		opts.Timeout = d.Timeout
	}
	return &DistributionFitter{opts: opts}
}

// Sample draws a deterministic subsample of the present values
func (f *DistributionFitter) Sample(xs []float64) []float64 {
	present := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			present = append(present, x)
		}
	}
	if len(present) <= f.opts.SampleSize {
		return present
	}
	r := rand.New(rand.NewPCG(f.opts.Seed, f.opts.Seed))
	perm := r.Perm(len(present))[:f.opts.SampleSize]
	sort.Ints(perm)
	out := make([]float64, len(perm))
	for i, p := range perm {
		out[i] = present[p]
	}
	return out
}

// Fit samples the column, fits every candidate family and returns the one with
// the lowest sum of squared errors between fitted and empirical density.
func (f *DistributionFitter) Fit(ctx context.Context, xs []float64) (FitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	sample := f.Sample(xs)
	if len(sample) < 3 {
		return Failed(), fmt.Errorf("%w: %d values", core.ErrInsufficientData, len(sample))
	}
	centers, density, err := f.histogram(sample)
	if err != nil {
		return Failed(), err
	}

	best := FitResult{SSE: math.Inf(1), Scores: make(map[string]float64)}
	for _, fam := range candidateFamilies {
		if ctx.Err() != nil {
			return Failed(), fmt.Errorf("%w after %s", core.ErrFitTimeout, f.opts.Timeout)
		}
		params, pdf, err := fam.fit(sample)
		if err != nil {
			continue
		}
		sse := 0.0
		for i, x := range centers {
			d := pdf(x) - density[i]
			sse += d * d
		}
		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			continue
		}
		best.Scores[fam.name] = sse
		if sse < best.SSE {
			best.Name, best.Params, best.SSE = fam.name, params, sse
		}
	}
	if ctx.Err() != nil {
		return Failed(), fmt.Errorf("%w after %s", core.ErrFitTimeout, f.opts.Timeout)
	}
	if best.Name == "" {
		return Failed(), fmt.Errorf("%w: no family produced a finite score", core.ErrFitFailed)
	}
	return best, nil
}

// histogram returns bin centres and normalised densities over [min, max]
func (f *DistributionFitter) histogram(sample []float64) ([]float64, []float64, error) {
	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi <= lo {
		return nil, nil, fmt.Errorf("%w: constant column", core.ErrInsufficientData)
	}
	bins := f.opts.Bins
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	centers := make([]float64, bins)
	density := make([]float64, bins)
	n := float64(len(sorted))
	for i := range counts {
		width := dividers[i+1] - dividers[i]
		centers[i] = (dividers[i] + dividers[i+1]) / 2
		density[i] = counts[i] / (n * width)
	}
	return centers, density, nil
}
