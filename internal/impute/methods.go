package impute

import (
	"fmt"
	"math"

	"lazyprep/domain/core"
	"lazyprep/domain/strategy"
	"lazyprep/domain/table"
	"lazyprep/internal/learn"
	"lazyprep/internal/statx"
)

const winsorLimit = 0.05

func fillWith(col *table.Column, v float64) (int, error) {
	if math.IsNaN(v) {
		return 0, core.ErrInsufficientData
	}
	return col.Fill(table.Num(v)), nil
}

func fillMean(col *table.Column) (int, error) {
	m, err := statx.Mean(col.Floats())
	if err != nil {
		return 0, err
	}
	return fillWith(col, m)
}

func fillMedian(col *table.Column) (int, error) {
	m, err := statx.Median(col.Floats())
	if err != nil {
		return 0, err
	}
	return fillWith(col, m)
}

func fillMode(col *table.Column) (int, error) {
	m, ok := statx.Mode(col.Floats())
	if !ok {
		return 0, core.ErrInsufficientData
	}
	return fillWith(col, m)
}

func fillWinsorizedMean(col *table.Column) (int, error) {
	clipped := statx.Winsorize(col.Present(), winsorLimit, winsorLimit)
	m, err := statx.Mean(clipped)
	if err != nil {
		return 0, err
	}
	return fillWith(col, m)
}

type blockFiller interface {
	FitTransform(X [][]float64) ([][]float64, error)
}

func (e *Engine) blockImputer(method strategy.ImputeMethod) blockFiller {
	switch method {
	case strategy.ImputeIterativeForest:
		trees, seed := e.opts.ForestTrees, e.opts.Seed
		return learn.NewIterativeImputer(func() learn.Regressor {
			return learn.NewRandomForest(learn.WithTrees(trees), learn.WithSeed(seed))
		})
	case strategy.ImputeIterativeBayesian:
		return learn.NewIterativeImputer(func() learn.Regressor { return learn.NewBayesianRidge() })
	default:
		return learn.NewKNNImputer()
	}
}

// fillBlock rewrites every named column from one joint imputation
func fillBlock(t *table.Table, names []string, imp blockFiller) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}
	X, err := t.Matrix(names)
	if err != nil {
		return 0, err
	}
	if len(X) == 0 {
		return 0, nil
	}
	before := missingCells(X)
	out, err := imp.FitTransform(X)
	if err != nil {
		return 0, err
	}
	if err := t.SetMatrix(names, out); err != nil {
		return 0, err
	}
	return before - missingCells(out), nil
}

func missingCells(X [][]float64) int {
	n := 0
	for _, row := range X {
		n += statx.CountMissing(row)
	}
	return n
}

// fillRegression predicts missing cells from the other numeric features
// with least squares. With nothing to predict, or fewer than two
// predictors, it falls back to the median.
func fillRegression(t *table.Table, col *table.Column, block []string) (int, error) {
	var predictors []string
	for _, n := range block {
		if n != col.Name {
			predictors = append(predictors, n)
		}
	}
	if col.MissingCount() == 0 || len(predictors) < 2 {
		return fillMedian(col)
	}

	X, err := t.Matrix(predictors)
	if err != nil {
		return 0, err
	}
	meanFill(X)
	y := col.Floats()

	var trainX, predX [][]float64
	var trainY []float64
	var rows []int
	for i, v := range y {
		if math.IsNaN(v) {
			predX = append(predX, X[i])
			rows = append(rows, i)
			continue
		}
		trainX = append(trainX, X[i])
		trainY = append(trainY, v)
	}
	if len(trainX) == 0 {
		return 0, fmt.Errorf("%w: no rows to train on", core.ErrInsufficientData)
	}

	model := learn.NewLinearRegression()
	if err := model.Fit(trainX, trainY); err != nil {
		return 0, err
	}
	for k, v := range model.Predict(predX) {
		y[rows[k]] = v
	}
	col.SetFloats(y)
	return len(rows), nil
}

// fillKMeans clusters rows on mean-filled numeric features and fills each
// cell with its column mean inside the row's cluster.
func fillKMeans(t *table.Table, col *table.Column, block []string, seed uint64) (int, error) {
	if col.MissingCount() == 0 {
		return 0, nil
	}
	if len(block) == 0 {
		return 0, fmt.Errorf("%w: no numeric features", core.ErrInsufficientData)
	}
	X, err := t.Matrix(block)
	if err != nil {
		return 0, err
	}
	meanFill(X)

	k := min(5, t.NumRows())
	km := learn.NewKMeans(k)
	km.Seed = seed
	labels, err := km.FitPredict(X)
	if err != nil {
		return 0, err
	}

	y := col.Floats()
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, v := range y {
		if !math.IsNaN(v) {
			sums[labels[i]] += v
			counts[labels[i]]++
		}
	}
	filled := 0
	for i, v := range y {
		if !math.IsNaN(v) || counts[labels[i]] == 0 {
			continue
		}
		y[i] = sums[labels[i]] / float64(counts[labels[i]])
		filled++
	}
	col.SetFloats(y)
	return filled, nil
}

// meanFill replaces NaN cells by their column mean in place
func meanFill(X [][]float64) {
	if len(X) == 0 {
		return
	}
	for j := range X[0] {
		col := make([]float64, len(X))
		for i := range X {
			col[i] = X[i][j]
		}
		m, err := statx.Mean(col)
		if err != nil {
			continue
		}
		for i := range X {
			if math.IsNaN(X[i][j]) {
				X[i][j] = m
			}
		}
	}
}
