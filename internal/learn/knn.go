package learn

import (
	"math"
	"sort"
)

// KNNImputer fills each missing cell with the mean of that feature over
// the k nearest rows that have it, using the NaN-aware euclidean distance.
type KNNImputer struct {
	K int
}

// NewKNNImputer uses five neighbours
func NewKNNImputer() *KNNImputer {
	return &KNNImputer{K: 5}
}

// NanEuclidean ignores coordinates missing in either row and scales the
// squared sum up by total/present coordinates. It is NaN when no
// coordinate is shared.
func NanEuclidean(a, b []float64) float64 {
	var sum float64
	present := 0
	for j := range a {
		if math.IsNaN(a[j]) || math.IsNaN(b[j]) {
			continue
		}
		d := a[j] - b[j]
		sum += d * d
		present++
	}
	if present == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(len(a)) / float64(present) * sum)
}

// FitTransform returns a filled copy of X. Distances are always taken on
// the original values, so fills never feed later fills. A row with no
// usable donor gets the feature mean.
func (k *KNNImputer) FitTransform(X [][]float64) ([][]float64, error) {
	if len(X) == 0 {
		return nil, ErrEmpty
	}
	p := len(X[0])
	for _, row := range X {
		if len(row) != p {
			return nil, ErrShape
		}
	}
	neighbours := k.K
	if neighbours <= 0 {
		neighbours = 5
	}
	means := columnMeans(X)
	out := cloneMatrix(X)

	type donor struct {
		dist  float64
		value float64
	}
	for j := 0; j < p; j++ {
		for i, row := range X {
			if !math.IsNaN(row[j]) {
				continue
			}
			var donors []donor
			for r, other := range X {
				if r == i || math.IsNaN(other[j]) {
					continue
				}
				d := NanEuclidean(row, other)
				if math.IsNaN(d) {
					continue
				}
				donors = append(donors, donor{d, other[j]})
			}
			if len(donors) == 0 {
				out[i][j] = means[j]
				continue
			}
			sort.SliceStable(donors, func(a, b int) bool { return donors[a].dist < donors[b].dist })
			if len(donors) > neighbours {
				donors = donors[:neighbours]
			}
			s := 0.0
			for _, d := range donors {
				s += d.value
			}
			out[i][j] = s / float64(len(donors))
		}
	}
	return out, nil
}
