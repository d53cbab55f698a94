package profiling

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lazyprep/domain/core"
	"lazyprep/domain/metadata"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal"
	"lazyprep/internal/testkit"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultFitOptions(), internal.NewNopLogger())
}

func TestFitPicksGeneratingFamily(t *testing.T) {
	g := testkit.NewDatasetGenerator(testkit.DefaultDatasetConfig())
	fitter := NewDistributionFitter(DefaultFitOptions())

	tests := []struct {
		name string
		data []float64
		want []string
	}{
		{"normal", g.Normal(3000, 50, 4), []string{"norm"}},
		{"exponential", g.Exponential(3000, 1.5), []string{"expon", "exponpow", "gamma", "chi2"}},
		{"uniform", g.Uniform(3000, -3, 7), []string{"uniform", "powerlaw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fitter.Fit(context.Background(), tt.data)
			require.NoError(t, err)
			assert.Contains(t, tt.want, res.Name)
			assert.NotEmpty(t, res.Params)
			assert.GreaterOrEqual(t, len(res.Scores), 5)
		})
	}
}

func TestFitFailures(t *testing.T) {
	fitter := NewDistributionFitter(DefaultFitOptions())

	res, err := fitter.Fit(context.Background(), []float64{1, math.NaN()})
	assert.ErrorIs(t, err, core.ErrInsufficientData)
	assert.Equal(t, strategy.FitFailed, res.Name)

	_, err = fitter.Fit(context.Background(), []float64{4, 4, 4, 4})
	assert.True(t, core.IsFitError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fitter.Fit(ctx, []float64{1, 2, 3, 4, 5, 6})
	assert.ErrorIs(t, err, core.ErrFitTimeout)
}

func TestFitDeadlineDuringLastFamily(t *testing.T) {
	saved := candidateFamilies
	t.Cleanup(func() { candidateFamilies = saved })
	candidateFamilies = []family{{"norm", func(sample []float64) (map[string]float64, densityFunc, error) {
		time.Sleep(50 * time.Millisecond)
		return fitNorm(sample)
	}}}

	fitter := NewDistributionFitter(FitOptions{SampleSize: 100, Seed: 1, Timeout: 10 * time.Millisecond})
	res, err := fitter.Fit(context.Background(), []float64{1, 2, 3, 4, 5, 6, 7, 8})
	assert.ErrorIs(t, err, core.ErrFitTimeout)
	assert.Equal(t, strategy.FitFailed, res.Name)
}

func TestSampleIsBoundedAndDeterministic(t *testing.T) {
	g := testkit.NewDatasetGenerator(testkit.DefaultDatasetConfig())
	xs := g.Normal(5000, 0, 1)
	xs[0] = math.NaN()
	f := NewDistributionFitter(FitOptions{SampleSize: 1500, Seed: 42, Timeout: time.Second})

	a := f.Sample(xs)
	b := f.Sample(xs)
	assert.Len(t, a, 1500)
	assert.Equal(t, a, b)
	for _, x := range a {
		assert.False(t, math.IsNaN(x))
	}
	assert.Len(t, f.Sample(xs[:10]), 9)
}

func TestAnalyzeClassifiesColumns(t *testing.T) {
	g := testkit.NewDatasetGenerator(testkit.DefaultDatasetConfig())
	tb := g.WeatherTable()
	md := metadata.New("WeatherType")

	require.NoError(t, newAnalyzer().Analyze(context.Background(), tb, md))

	assert.Equal(t, []string{"Unused"}, md.UnclassifiedColumns)
	_, ok := md.Column("Unused")
	assert.False(t, ok)

	temp, ok := md.Column("Temperature")
	require.True(t, ok)
	assert.Equal(t, metadata.CategoryNumeric, temp.Category)
	assert.NotEmpty(t, temp.DistributionName)
	assert.NotEqual(t, strategy.FitFailed, temp.DistributionName)
	assert.Equal(t, strategy.Recommend(temp.DistributionName).Outlier, temp.RecommendedOutlier)

	season, ok := md.Column("Season")
	require.True(t, ok)
	assert.Equal(t, metadata.CategoryCategorical, season.Category)
	assert.Equal(t, 4, season.Cardinality)
	require.NotNil(t, season.ModeValue)

	names := md.Columns.Names()
	assert.Equal(t, "Temperature", names[0])
	assert.Equal(t, "WeatherType", names[len(names)-1])
}

func TestAnalyzeFitFailedUsesDefaults(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("flat", []float64{3, 3, 3, math.NaN()}),
		table.NewColumn("flag", table.KindBoolean, []table.Value{table.Bool(true), table.Bool(false), table.Missing(), table.Bool(true)}),
		table.NewColumn("when", table.KindDatetime, []table.Value{table.Time(time.Unix(0, 0)), table.Missing(), table.Missing(), table.Missing()}),
	)
	md := metadata.New("")
	require.NoError(t, newAnalyzer().Analyze(context.Background(), tb, md))

	flat, ok := md.Column("flat")
	require.True(t, ok)
	assert.Equal(t, strategy.FitFailed, flat.DistributionName)
	assert.Nil(t, flat.DistributionParams)
	assert.Equal(t, strategy.OutlierIQR, flat.RecommendedOutlier)
	assert.Equal(t, strategy.ImputeMean, flat.RecommendedImpute)
	assert.True(t, flat.FitFailed())
	assert.NotEmpty(t, md.Warnings)

	flag, _ := md.Column("flag")
	assert.Equal(t, metadata.CategoryBoolean, flag.Category)
	when, _ := md.Column("when")
	assert.Equal(t, metadata.CategoryDatetime, when.Category)
	assert.Empty(t, when.DistributionName)
}

func TestAnalyzeDoesNotMutateTable(t *testing.T) {
	tb := table.MustNew(table.NewNumeric("x", []float64{1, 2, math.NaN(), 4, 5}))
	before := tb.Clone()
	require.NoError(t, newAnalyzer().Analyze(context.Background(), tb, metadata.New("")))
	x, _ := tb.Column("x")
	bx, _ := before.Column("x")
	assert.Equal(t, bx.Values, x.Values)
}
