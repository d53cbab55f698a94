package learn

import (
	"math"
	"math/rand/v2"
)

// KMeans partitions rows into K clusters with Lloyd iterations after a
// k-means++ seeding.
type KMeans struct {
	K         int
	MaxIter   int
	Seed      uint64
	Centroids [][]float64
	Inertia   float64 // sum of squared distances to the nearest centroid
}

// NewKMeans creates a KMeans model
func NewKMeans(k int) *KMeans {
	return &KMeans{K: k, MaxIter: 300}
}

// FitPredict clusters X and returns the assignment of every row
func (m *KMeans) FitPredict(X [][]float64) ([]int, error) {
	if len(X) == 0 {
		return nil, ErrEmpty
	}
	n, p := len(X), len(X[0])
	for _, row := range X {
		if len(row) != p {
			return nil, ErrShape
		}
	}
	if m.K <= 0 || n < m.K {
		return nil, ErrTooFewSamples
	}

	m.initCenters(X)
	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	for it := 0; it < m.MaxIter; it++ {
		changed := false
		for i, row := range X {
			best := m.nearest(row)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, row := range X {
			k := assign[i]
			counts[k]++
			for j, v := range row {
				sums[k][j] += v
			}
		}
		for k := range sums {
			if counts[k] == 0 {
				continue // empty cluster keeps its centroid
			}
			for j := range sums[k] {
				m.Centroids[k][j] = sums[k][j] / float64(counts[k])
			}
		}
	}

	m.Inertia = 0
	for i, row := range X {
		m.Inertia += euclidSquared(row, m.Centroids[assign[i]])
	}
	return assign, nil
}

func (m *KMeans) nearest(row []float64) int {
	best, bestD := 0, math.MaxFloat64
	for k, c := range m.Centroids {
		if d := euclidSquared(row, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

// initCenters is k-means++: each next centre is drawn with probability
// proportional to its squared distance from the closest chosen centre.
func (m *KMeans) initCenters(X [][]float64) {
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed))
	n := len(X)
	m.Centroids = make([][]float64, 0, m.K)
	chosen := make(map[int]bool, m.K)

	first := rng.IntN(n)
	m.Centroids = append(m.Centroids, append([]float64(nil), X[first]...))
	chosen[first] = true

	distSq := make([]float64, n)
	for len(m.Centroids) < m.K {
		total := 0.0
		for i, row := range X {
			distSq[i] = euclidSquared(row, m.Centroids[m.nearest(row)])
			total += distSq[i]
		}
		next := -1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range distSq {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}
		if next < 0 {
			// remaining rows coincide with chosen centres
			for i := 0; i < n; i++ {
				if !chosen[i] {
					next = i
					break
				}
			}
		}
		chosen[next] = true
		m.Centroids = append(m.Centroids, append([]float64(nil), X[next]...))
	}
}
