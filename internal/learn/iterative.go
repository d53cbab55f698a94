package learn

import (
	"math"
	"sort"
)

// IterativeImputer models every feature with missing values as a function
// of all other features, round-robin, starting from a mean fill.
type IterativeImputer struct {
	MaxIter   int
	Tol       float64
	Estimator EstimatorFactory

	// NIter is the number of rounds the last call ran
	NIter int
}

// NewIterativeImputer runs up to ten rounds with the given estimator
func NewIterativeImputer(estimator EstimatorFactory) *IterativeImputer {
	return &IterativeImputer{MaxIter: 10, Tol: 1e-3, Estimator: estimator}
}

// FitTransform returns a filled copy of X. Entirely missing features stay
// missing and are not used as predictors. Features are visited in
// ascending order of missing count. Iteration stops early once the largest
// change in a round falls below Tol times the largest absolute observed value.
func (im *IterativeImputer) FitTransform(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, ErrEmpty
	}
	p := len(X[0])
	for _, row := range X {
		if len(row) != p {
			return nil, ErrShape
		}
	}

	missing := make([]int, p)
	var maxAbs float64
	for _, row := range X {
		for j, v := range row {
			if math.IsNaN(v) {
				missing[j]++
			} else if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
	}

	out := cloneMatrix(X)
	means := columnMeans(X)
	for _, row := range out {
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = means[j]
			}
		}
	}

	var order, predictors []int
	for j, m := range missing {
		if m < len(X) {
			predictors = append(predictors, j)
		}
		if m > 0 && m < len(X) {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return missing[order[a]] < missing[order[b]] })
	im.NIter = 0
	if len(order) == 0 || len(predictors) < 2 || im.Estimator == nil {
		return out, nil
	}

	limit := im.Tol * maxAbs
	for it := 0; it < im.MaxIter; it++ {
		prev := cloneMatrix(out)
		for _, f := range order {
			if err := im.imputeFeature(X, out, f, predictors); err != nil {
				return nil, err
			}
		}
		im.NIter = it + 1

		var change float64
		for i, row := range out {
			for j, v := range row {
				if d := math.Abs(v - prev[i][j]); d > change {
					change = d
				}
			}
		}
		if change < limit {
			break
		}
	}
	return out, nil
}

func (im *IterativeImputer) imputeFeature(orig, cur [][]float64, f int, predictors []int) error {
	var trainX, predX [][]float64
	var trainY []float64
	var predRows []int
	for i, row := range orig {
		features := pick(cur[i], predictors, f)
		if math.IsNaN(row[f]) {
			predX = append(predX, features)
			predRows = append(predRows, i)
			continue
		}
		trainX = append(trainX, features)
		trainY = append(trainY, row[f])
	}
	est := im.Estimator()
	if err := est.Fit(trainX, trainY); err != nil {
		return err
	}
	for k, v := range est.Predict(predX) {
		cur[predRows[k]][f] = v
	}
	return nil
}

// pick gathers the predictor cells of a row, leaving out the target feature
func pick(row []float64, cols []int, skip int) []float64 {
	out := make([]float64, 0, len(cols))
	for _, j := range cols {
		if j != skip {
			out = append(out, row[j])
		}
	}
	return out
}
