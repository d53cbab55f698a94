package learn

import (
	"math"
	"math/rand/v2"
	"sort"
)

// RegressionTree is a CART tree splitting on squared error.
type RegressionTree struct {
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features

	root *treeNode
	rng  *rand.Rand
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64 // x <= threshold goes left
	left      *treeNode
	right     *treeNode
}

// pair is a feature value with its row index
type pair struct {
	v float64
	i int
}

// NewRegressionTree returns a fully grown tree
func NewRegressionTree(seed uint64) *RegressionTree {
	return &RegressionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		rng:             rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Fit grows the tree on all rows
func (t *RegressionTree) Fit(X [][]float64, y []float64) error {
	n, _, err := checkXY(X, y)
	if err != nil {
		return err
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	t.fitRows(X, y, idx)
	return nil
}

func (t *RegressionTree) fitRows(X [][]float64, y []float64, idx []int) {
	t.root = t.build(X, y, idx, 0)
}

// Predict walks each row to a leaf
func (t *RegressionTree) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = t.predictOne(row)
	}
	return out
}

func (t *RegressionTree) predictOne(row []float64) float64 {
	node := t.root
	if node == nil {
		return math.NaN()
	}
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

func meanOf(y []float64, idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}

func (t *RegressionTree) build(X [][]float64, y []float64, idx []int, depth int) *treeNode {
	node := &treeNode{leaf: true, value: meanOf(y, idx)}
	if len(idx) < t.MinSamplesSplit || len(idx) < 2*t.MinSamplesLeaf {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	p := len(X[idx[0]])
	features := make([]int, p)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		t.rng.Shuffle(p, func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:t.MaxFeatures]
	}

	bestGain := 0.0
	bestFeature := -1
	var bestThreshold float64
	for _, f := range features {
		gain, threshold, ok := t.bestSplit(X, y, idx, f)
		if ok && gain > bestGain {
			bestGain, bestFeature, bestThreshold = gain, f, threshold
		}
	}
	if bestFeature < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.leaf = false
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = t.build(X, y, left, depth+1)
	node.right = t.build(X, y, right, depth+1)
	return node
}

// bestSplit scans sorted values keeping running sums, so each candidate
// threshold costs O(1).
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, idx []int, f int) (float64, float64, bool) {
	vals := make([]pair, len(idx))
	var total, totalSq float64
	for k, i := range idx {
		vals[k] = pair{X[i][f], i}
		total += y[i]
		totalSq += y[i] * y[i]
	}
	sort.Slice(vals, func(a, b int) bool { return vals[a].v < vals[b].v })

	n := float64(len(vals))
	parent := totalSq - total*total/n

	var leftSum, leftSq float64
	best, threshold, found := 0.0, 0.0, false
	for k := 0; k < len(vals)-1; k++ {
		yi := y[vals[k].i]
		leftSum += yi
		leftSq += yi * yi
		if vals[k].v == vals[k+1].v {
			continue
		}
		nl := float64(k + 1)
		nr := n - nl
		if int(nl) < t.MinSamplesLeaf || int(nr) < t.MinSamplesLeaf {
			continue
		}
		rightSum := total - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if gain := parent - sse; gain > best {
			best = gain
			threshold = (vals[k].v + vals[k+1].v) / 2
			found = true
		}
	}
	return best, threshold, found
}

// RandomForest averages bootstrapped regression trees.
type RandomForest struct {
	NTrees      int
	MaxDepth    int
	MaxFeatures int
	Seed        uint64

	trees []*RegressionTree
}

// ForestOption configures a RandomForest
type ForestOption func(*RandomForest)

func WithTrees(n int) ForestOption       { return func(f *RandomForest) { f.NTrees = n } }
func WithMaxDepth(d int) ForestOption    { return func(f *RandomForest) { f.MaxDepth = d } }
func WithMaxFeatures(k int) ForestOption { return func(f *RandomForest) { f.MaxFeatures = k } }
func WithSeed(seed uint64) ForestOption  { return func(f *RandomForest) { f.Seed = seed } }

// NewRandomForest returns a 100-tree forest seeded with 0
func NewRandomForest(opts ...ForestOption) *RandomForest {
	f := &RandomForest{NTrees: 100}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit grows each tree on a bootstrap sample of the rows
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	n, _, err := checkXY(X, y)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(f.Seed, f.Seed+1))
	f.trees = make([]*RegressionTree, f.NTrees)
	for k := range f.trees {
		tree := NewRegressionTree(rng.Uint64())
		tree.MaxDepth = f.MaxDepth
		tree.MaxFeatures = f.MaxFeatures
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		tree.fitRows(X, y, sample)
		f.trees[k] = tree
	}
	return nil
}

// Predict averages the trees
func (f *RandomForest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.trees) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for _, tree := range f.trees {
		for i, v := range tree.Predict(X) {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(f.trees))
	}
	return out
}
