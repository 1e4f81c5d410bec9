package rforest

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Forest is a random forest of CART trees, usable as a binary classifier
// (labels 0/1) or a regressor. Training is deterministic under a fixed
// seed. The whole structure is JSON-serializable so the model store can
// persist it as an opaque blob.
type Forest struct {
	Kind        Kind      `json:"kind"`
	Config      Config    `json:"config"`
	NFeatures   int       `json:"n_features"`
	Trees       []tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

// TrainClassifier fits a binary classification forest. y must contain
// only 0 and 1.
func TrainClassifier(x [][]float64, y []float64, cfg Config) (*Forest, error) {
	if err := validate(x, y); err != nil {
		return nil, err
	}
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("classifier labels must be 0 or 1, got %v", v)
		}
	}
	return train(x, y, Classification, cfg)
}

// TrainRegressor fits a regression forest.
func TrainRegressor(x [][]float64, y []float64, cfg Config) (*Forest, error) {
	if err := validate(x, y); err != nil {
		return nil, err
	}
	cfg.Balanced = false
	return train(x, y, Regression, cfg)
}

func validate(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("empty training set")
	}
	if len(x) != len(y) {
		return fmt.Errorf("X and y length mismatch: %d != %d", len(x), len(y))
	}
	return nil
}

func train(x [][]float64, y []float64, kind Kind, cfg Config) (*Forest, error) {
	if cfg.NEstimators < 1 {
		cfg.NEstimators = 1
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}

	n := len(x)
	weights := sampleWeights(y, kind, cfg.Balanced)

	f := &Forest{
		Kind:        kind,
		Config:      cfg,
		NFeatures:   len(x[0]),
		Trees:       make([]tree, 0, cfg.NEstimators),
		Importances: make([]float64, len(x[0])),
	}

	for t := 0; t < cfg.NEstimators; t++ {
		// Per-tree seed: tree t always sees the same bootstrap sample
		// regardless of how many trees were requested.
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))

		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.Intn(n)
		}

		builder := newTreeBuilder(x, y, weights, kind, cfg, rng)
		f.Trees = append(f.Trees, builder.fit(indices))

		for j, imp := range builder.importances {
			f.Importances[j] += imp
		}
	}

	normalize(f.Importances)
	return f, nil
}

// sampleWeights returns per-sample weights. With balancing enabled each
// class contributes equal total weight, mirroring the usual
// n / (n_classes * count_c) scheme.
func sampleWeights(y []float64, kind Kind, balanced bool) []float64 {
	w := make([]float64, len(y))
	if kind != Classification || !balanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}

	var count [2]float64
	for _, v := range y {
		count[int(v)]++
	}
	n := float64(len(y))
	for i, v := range y {
		c := count[int(v)]
		if c > 0 {
			w[i] = n / (2 * c)
		}
	}
	return w
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// PredictProba returns [p0, p1] for one sample, averaged over trees.
// Classification forests only.
func (f *Forest) PredictProba(x []float64) []float64 {
	probs := []float64{0, 0}
	for i := range f.Trees {
		v := f.Trees[i].predict(x)
		probs[0] += v[0]
		probs[1] += v[1]
	}
	nTrees := float64(len(f.Trees))
	probs[0] /= nTrees
	probs[1] /= nTrees
	return probs
}

// Predict returns the majority class (classification) or the mean of the
// trees' predictions (regression) for one sample.
func (f *Forest) Predict(x []float64) float64 {
	if f.Kind == Classification {
		if f.PredictProba(x)[1] >= 0.5 {
			return 1
		}
		return 0
	}

	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)[0]
	}
	return sum / float64(len(f.Trees))
}

// PredictAll applies Predict to every row.
func (f *Forest) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = f.Predict(x[i])
	}
	return out
}

// ScoreAll returns the positive-class probability for every row
// (classification) or the prediction itself (regression); the form the
// AUC and ranking metrics want.
func (f *Forest) ScoreAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if f.Kind == Classification {
			out[i] = f.PredictProba(x[i])[1]
		} else {
			out[i] = f.Predict(x[i])
		}
	}
	return out
}

// FeatureImportances returns the normalized mean decrease in impurity
// per feature, aligned with the training feature order.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

// Marshal serializes the forest to JSON.
func (f *Forest) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// Unmarshal restores a forest serialized with Marshal.
func Unmarshal(data []byte) (*Forest, error) {
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("decoded forest has no trees")
	}
	return &f, nil
}
