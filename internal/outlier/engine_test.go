package outlier

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/metadata"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/statx"
)

var nan = math.NaN()

func numericMeta(md *metadata.Pipeline, name string, m strategy.OutlierMethod) {
	md.Columns.Set(name, &metadata.Column{Category: metadata.CategoryNumeric, RecommendedOutlier: m})
}

func run(t *testing.T, e *Engine, tb *table.Table, md *metadata.Pipeline) {
	t.Helper()
	require.NoError(t, e.Transform(context.Background(), tb, md))
}

func TestZScoreRemovesExtremeRow(t *testing.T) {
	xs := make([]float64, 0, 21)
	for i := 0; i < 5; i++ {
		xs = append(xs, 10, 12, 11, 13)
	}
	xs = append(xs, 1000)
	tb := table.MustNew(table.NewNumeric("v", xs))
	md := metadata.New("")
	numericMeta(md, "v", strategy.OutlierZScore)

	run(t, New(Options{}, internal.NewNopLogger()), tb, md)
	v, _ := tb.Column("v")
	assert.Equal(t, 20, v.Len())
	assert.Equal(t, xs[:20], v.Floats())
}

func TestZScoreNeedsEnoughRows(t *testing.T) {
	// with five rows the largest attainable |z| is 4/sqrt(5)
	tb := table.MustNew(table.NewNumeric("v", []float64{10, 12, 11, 13, 1000}))
	md := metadata.New("")
	numericMeta(md, "v", strategy.OutlierZScore)
	run(t, New(Options{}, internal.NewNopLogger()), tb, md)
	assert.Equal(t, 5, tb.NumRows())
}

func TestIQRIsIdempotent(t *testing.T) {
	xs := make([]float64, 0, 103)
	for i := 1; i <= 100; i++ {
		xs = append(xs, float64(i))
	}
	xs = append(xs, 1000, -2000, nan)
	tb := table.MustNew(table.NewNumeric("v", xs))
	md := metadata.New("")
	numericMeta(md, "v", strategy.OutlierIQR)
	e := New(Options{}, internal.NewNopLogger())

	run(t, e, tb, md)
	assert.Equal(t, 101, tb.NumRows(), "missing row kept")

	v, _ := tb.Column("v")
	q, err := statx.Quantiles(v.Floats(), 0.25, 0.75)
	require.NoError(t, err)
	iqr := q[1] - q[0]
	for _, x := range v.Present() {
		assert.GreaterOrEqual(t, x, q[0]-1.5*iqr)
		assert.LessOrEqual(t, x, q[1]+1.5*iqr)
	}

	run(t, e, tb, md)
	assert.Equal(t, 101, tb.NumRows())
}

func TestLogSpaceIQRSkipsNonPositive(t *testing.T) {
	xs := []float64{1, 2, 3, -4, 500}
	tb := table.MustNew(table.NewNumeric("v", xs))
	md := metadata.New("")
	numericMeta(md, "v", strategy.OutlierLogIQR)

	run(t, New(Options{}, internal.NewNopLogger()), tb, md)
	v, _ := tb.Column("v")
	assert.Equal(t, xs, v.Floats())
	require.Len(t, md.Warnings, 1)
	assert.Contains(t, md.Warnings[0].Message, "log-space IQR")
}

func TestMethods(t *testing.T) {
	base := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29}
	tests := []struct {
		name    string
		method  strategy.OutlierMethod
		data    []float64
		removed int
	}{
		{"percentile", strategy.OutlierPercentile, base, 2},
		{"range", strategy.OutlierRange, []float64{1, 5, 5, 9, 9, 3}, 3},
		{"mad", strategy.OutlierMAD, append(append([]float64{}, base...), 90), 1},
		{"modified z", strategy.OutlierModifiedZ, append(append([]float64{}, base...), 90), 1},
		{"modified z zero mad", strategy.OutlierModifiedZ, []float64{5, 5, 5, 5, 100}, 0},
		{"log iqr", strategy.OutlierLogIQR, append(append([]float64{}, base...), 5000), 1},
		{"iqr", strategy.OutlierIQR, append(append([]float64{}, base...), 90), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := table.MustNew(table.NewNumeric("v", tt.data))
			md := metadata.New("")
			numericMeta(md, "v", tt.method)
			run(t, New(Options{}, internal.NewNopLogger()), tb, md)
			assert.Equal(t, tt.removed, len(tt.data)-tb.NumRows())
		})
	}
}

func TestSkipsTargetAndCategorical(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("y", []float64{1, 2, 3, 4, 1000}),
		table.NewText("c", []string{"a", "b", "a", "b", "a"}),
		table.NewNumeric("codes", []float64{1, 1, 1, 1, 99}),
	)
	md := metadata.New("y")
	numericMeta(md, "y", strategy.OutlierRange)
	md.Columns.Set("c", &metadata.Column{Category: metadata.CategoryCategorical})
	md.Columns.Set("codes", &metadata.Column{Category: metadata.CategoryCategorical})

	run(t, New(Options{Default: "Range-based"}, internal.NewNopLogger()), tb, md)
	assert.Equal(t, 5, tb.NumRows())
}

func TestSequentialFold(t *testing.T) {
	// a's range pass drops rows 0 and 4, then b's pass sees 20 and 40 as its extremes
	tb := table.MustNew(
		table.NewNumeric("a", []float64{1, 2, 3, 4, 100}),
		table.NewNumeric("b", []float64{10, 20, 30, 40, 50}),
	)
	md := metadata.New("")
	numericMeta(md, "a", strategy.OutlierRange)
	numericMeta(md, "b", strategy.OutlierRange)

	run(t, New(Options{}, internal.NewNopLogger()), tb, md)
	b, _ := tb.Column("b")
	assert.Equal(t, []float64{30}, b.Floats())
}

func TestResolvePrecedence(t *testing.T) {
	md := metadata.New("")
	entry := &metadata.Column{Category: metadata.CategoryNumeric, RecommendedOutlier: strategy.OutlierZScore}

	e := New(Options{Default: "MAD", Overrides: map[string]string{"x": "Percentile", "bad": "nope"}}, internal.NewNopLogger())
	assert.Equal(t, strategy.OutlierPercentile, e.Resolve("x", entry, md))
	assert.Equal(t, strategy.OutlierMAD, e.Resolve("bad", entry, md), "unknown override uses the global default")
	assert.Equal(t, strategy.OutlierMAD, e.Resolve("y", &metadata.Column{Category: metadata.CategoryNumeric}, md))
	assert.Len(t, md.Warnings, 1)

	e = New(Options{Default: "bogus"}, internal.NewNopLogger())
	assert.Equal(t, strategy.OutlierIQR, e.Resolve("y", &metadata.Column{Category: metadata.CategoryNumeric, RecommendedOutlier: "weird"}, md))
	assert.Len(t, md.Warnings, 3)
}
