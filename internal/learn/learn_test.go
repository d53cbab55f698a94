package learn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func linearData(n int) ([][]float64, []float64) {
	r := rand.New(rand.NewPCG(1, 2))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := r.Float64()*10, r.Float64()*5
		X[i] = []float64{a, b}
		y[i] = 3 + 2*a - 0.5*b
	}
	return X, y
}

func TestLinearRegression_RecoversCoefficients(t *testing.T) {
	X, y := linearData(50)
	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))

	coef := m.Coef()
	assert.InDelta(t, 2.0, coef[0], 1e-8)
	assert.InDelta(t, -0.5, coef[1], 1e-8)
	assert.InDelta(t, 3.0, m.Intercept(), 1e-8)

	pred := m.Predict([][]float64{{1, 2}})
	assert.InDelta(t, 4.0, pred[0], 1e-8)
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// second column duplicates the first
	X := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{2, 4, 6, 8}
	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))

	coef := m.Coef()
	assert.InDelta(t, coef[0], coef[1], 1e-9, "minimum norm splits the weight")
	assert.InDelta(t, 10.0, m.Predict([][]float64{{5, 5}})[0], 1e-8)
}

func TestLinearRegression_Errors(t *testing.T) {
	m := NewLinearRegression()
	assert.ErrorIs(t, m.Fit(nil, nil), ErrEmpty)
	assert.ErrorIs(t, m.Fit([][]float64{{1}, {2, 3}}, []float64{1, 2}), ErrShape)
	assert.ErrorIs(t, m.Fit([][]float64{{1}}, []float64{1, 2}), ErrShape)
}

func TestBayesianRidge_CloseToOLS(t *testing.T) {
	X, y := linearData(80)
	m := NewBayesianRidge()
	require.NoError(t, m.Fit(X, y))

	coef := m.Coef()
	assert.InDelta(t, 2.0, coef[0], 1e-3)
	assert.InDelta(t, -0.5, coef[1], 1e-3)
	assert.Greater(t, m.Alpha, 0.0)
	assert.Greater(t, m.Lambda, 0.0)
}

func TestRandomForest_StepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i)
		X = append(X, []float64{x})
		if x < 20 {
			y = append(y, 1)
		} else {
			y = append(y, 5)
		}
	}
	f := NewRandomForest(WithTrees(25), WithSeed(3))
	require.NoError(t, f.Fit(X, y))

	pred := f.Predict([][]float64{{2}, {37}})
	assert.InDelta(t, 1.0, pred[0], 0.5)
	assert.InDelta(t, 5.0, pred[1], 0.5)

	again := NewRandomForest(WithTrees(25), WithSeed(3))
	require.NoError(t, again.Fit(X, y))
	assert.Equal(t, pred, again.Predict([][]float64{{2}, {37}}), "same seed, same forest")
}

func TestRegressionTree_PureLeaves(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{0, 0, 0, 9, 9, 9}
	tree := NewRegressionTree(0)
	require.NoError(t, tree.Fit(X, y))
	assert.Equal(t, []float64{0, 9}, tree.Predict([][]float64{{0}, {20}}))
}

func TestNanEuclidean(t *testing.T) {
	assert.InDelta(t, 5.0, NanEuclidean([]float64{0, 0}, []float64{3, 4}), 1e-12)
	// one shared coordinate of two: sqrt(2/1 * 9)
	assert.InDelta(t, math.Sqrt(18), NanEuclidean([]float64{0, nan}, []float64{3, 4}), 1e-12)
	assert.True(t, math.IsNaN(NanEuclidean([]float64{nan, 1}, []float64{2, nan})))
}

func TestKNNImputer(t *testing.T) {
	X := [][]float64{
		{1, 10},
		{2, 20},
		{3, nan},
		{100, 1000},
	}
	k := &KNNImputer{K: 2}
	out, err := k.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, out[2][1], 1e-12, "two nearest donors are rows 0 and 1")
	assert.True(t, math.IsNaN(X[2][1]), "input untouched")

	t.Run("no shared coordinates falls back to mean", func(t *testing.T) {
		out, err := NewKNNImputer().FitTransform([][]float64{{nan, 1}, {2, nan}, {4, nan}})
		require.NoError(t, err)
		assert.InDelta(t, 3.0, out[0][0], 1e-12)
	})
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	X := [][]float64{{0, 0}, {0.1, 0}, {0, 0.1}, {10, 10}, {10.1, 10}, {10, 10.1}}
	m := NewKMeans(2)
	labels, err := m.FitPredict(X)
	require.NoError(t, err)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.NotEqual(t, labels[0], labels[3])
	assert.Less(t, m.Inertia, 0.1)

	_, err = NewKMeans(7).FitPredict(X)
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestKMeans_DuplicateRows(t *testing.T) {
	X := [][]float64{{1}, {1}, {1}}
	labels, err := NewKMeans(3).FitPredict(X)
	require.NoError(t, err)
	assert.Len(t, labels, 3)
}

func TestIterativeImputer_LinearRelation(t *testing.T) {
	X := [][]float64{
		{1, 2},
		{2, 4},
		{3, 6},
		{4, nan},
		{5, 10},
		{nan, 12},
	}
	im := NewIterativeImputer(func() Regressor { return NewLinearRegression() })
	out, err := im.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, out[3][1], 0.05)
	assert.InDelta(t, 6.0, out[5][0], 0.05)
	assert.GreaterOrEqual(t, im.NIter, 1)
}

func TestIterativeImputer_EmptyFeatureStaysMissing(t *testing.T) {
	X := [][]float64{{1, nan, 2}, {2, nan, 4}, {nan, nan, 6}, {4, nan, 8}}
	im := NewIterativeImputer(func() Regressor { return NewBayesianRidge() })
	out, err := im.FitTransform(X)
	require.NoError(t, err)
	for _, row := range out {
		assert.True(t, math.IsNaN(row[1]))
	}
	assert.InDelta(t, 3.0, out[2][0], 0.1)
}
