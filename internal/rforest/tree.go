package rforest

import (
	"math"
	"math/rand"
	"sort"
)

// node is one CART node in a flat array. Feature is -1 for leaves.
// For classification, Value is the weighted class distribution [p0, p1];
// for regression it is the single-element mean.
type node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// predict walks the tree for one sample. An undefined feature value fails
// the <= comparison and falls to the right child.
func (t *tree) predict(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows a single CART tree on a bootstrap sample.
type treeBuilder struct {
	x    [][]float64
	y    []float64
	w    []float64 // per-sample weights (class balancing)
	kind Kind
	cfg  Config
	k    int // features considered per split
	rng  *rand.Rand

	nodes       []node
	importances []float64 // weighted impurity decrease per feature
}

func newTreeBuilder(x [][]float64, y, w []float64, kind Kind, cfg Config, rng *rand.Rand) *treeBuilder {
	nFeatures := 0
	if len(x) > 0 {
		nFeatures = len(x[0])
	}
	return &treeBuilder{
		x:           x,
		y:           y,
		w:           w,
		kind:        kind,
		cfg:         cfg,
		k:           cfg.featuresPerSplit(nFeatures),
		rng:         rng,
		importances: make([]float64, nFeatures),
	}
}

func (b *treeBuilder) fit(indices []int) tree {
	b.grow(indices, 0)
	return tree{Nodes: b.nodes}
}

// nodeStats aggregates the weighted target statistics of a set of samples.
type nodeStats struct {
	weight float64
	// classification
	classW [2]float64
	// regression
	sum, sumSq float64
}

func (b *treeBuilder) stats(indices []int) nodeStats {
	var s nodeStats
	for _, i := range indices {
		w := b.w[i]
		s.weight += w
		if b.kind == Classification {
			s.classW[int(b.y[i])] += w
		} else {
			s.sum += w * b.y[i]
			s.sumSq += w * b.y[i] * b.y[i]
		}
	}
	return s
}

// impurity is Gini for classification, weighted variance for regression.
func (s nodeStats) impurity(kind Kind) float64 {
	if s.weight <= 0 {
		return 0
	}
	if kind == Classification {
		p0 := s.classW[0] / s.weight
		p1 := s.classW[1] / s.weight
		return 1 - p0*p0 - p1*p1
	}
	mean := s.sum / s.weight
	v := s.sumSq/s.weight - mean*mean
	if v < 0 {
		v = 0 // numeric noise
	}
	return v
}

func (s nodeStats) leafValue(kind Kind) []float64 {
	if kind == Classification {
		if s.weight <= 0 {
			return []float64{0.5, 0.5}
		}
		return []float64{s.classW[0] / s.weight, s.classW[1] / s.weight}
	}
	if s.weight <= 0 {
		return []float64{0}
	}
	return []float64{s.sum / s.weight}
}

func (s *nodeStats) add(i int, b *treeBuilder) {
	w := b.w[i]
	s.weight += w
	if b.kind == Classification {
		s.classW[int(b.y[i])] += w
	} else {
		s.sum += w * b.y[i]
		s.sumSq += w * b.y[i] * b.y[i]
	}
}

func (s *nodeStats) sub(i int, b *treeBuilder) {
	w := b.w[i]
	s.weight -= w
	if b.kind == Classification {
		s.classW[int(b.y[i])] -= w
	} else {
		s.sum -= w * b.y[i]
		s.sumSq -= w * b.y[i] * b.y[i]
	}
}

// grow recursively builds the subtree for the given samples and returns
// its node index.
func (b *treeBuilder) grow(indices []int, depth int) int {
	total := b.stats(indices)
	impurity := total.impurity(b.kind)

	leaf := func() int {
		b.nodes = append(b.nodes, node{Feature: -1, Value: total.leafValue(b.kind)})
		return len(b.nodes) - 1
	}

	if impurity == 0 ||
		len(indices) < 2*b.cfg.MinSamplesLeaf ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) {
		return leaf()
	}

	feature, threshold, gain, ok := b.bestSplit(indices, total)
	if !ok {
		return leaf()
	}

	b.importances[feature] += total.weight * gain

	var left, right []int
	for _, i := range indices {
		if v := b.x[i][feature]; !math.IsNaN(v) && v <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	// Reserve this node's slot before recursing so children land after it.
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{Feature: feature, Threshold: threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit scans a random subset of features for the split with the
// largest impurity decrease that leaves MinSamplesLeaf samples on each
// side. Samples with an undefined value for a feature are ignored when
// scoring that feature.
func (b *treeBuilder) bestSplit(indices []int, total nodeStats) (feature int, threshold, gain float64, ok bool) {
	bestGain := 0.0
	nFeatures := len(b.importances)

	candidates := b.rng.Perm(nFeatures)[:b.k]
	for _, f := range candidates {
		// Order samples by this feature's value.
		ordered := make([]int, 0, len(indices))
		for _, i := range indices {
			if !math.IsNaN(b.x[i][f]) {
				ordered = append(ordered, i)
			}
		}
		if len(ordered) < 2*b.cfg.MinSamplesLeaf {
			continue
		}
		sort.Slice(ordered, func(a, c int) bool { return b.x[ordered[a]][f] < b.x[ordered[c]][f] })

		subTotal := b.stats(ordered)
		subImpurity := subTotal.impurity(b.kind)

		var left nodeStats
		right := subTotal

		for pos := 0; pos < len(ordered)-1; pos++ {
			left.add(ordered[pos], b)
			right.sub(ordered[pos], b)

			v, next := b.x[ordered[pos]][f], b.x[ordered[pos+1]][f]
			if v == next {
				continue // no boundary between tied values
			}
			if pos+1 < b.cfg.MinSamplesLeaf || len(ordered)-pos-1 < b.cfg.MinSamplesLeaf {
				continue
			}

			g := subImpurity -
				(left.weight/subTotal.weight)*left.impurity(b.kind) -
				(right.weight/subTotal.weight)*right.impurity(b.kind)
			if g > bestGain {
				bestGain = g
				feature = f
				threshold = (v + next) / 2
				ok = true
			}
		}
	}

	return feature, threshold, bestGain, ok
}
