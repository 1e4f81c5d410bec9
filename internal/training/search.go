package training

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/internal/dataset"
	"github.com/MateusRestier/insight-invest/internal/rforest"
)

// ParamSpace enumerates the hyperparameter grid a random search draws
// candidates from.
type ParamSpace struct {
	NEstimators    []int
	MaxDepth       []int // 0 means unbounded
	MinSamplesLeaf []int
	MaxFeatures    []string
	ClassWeight    []bool // balanced yes/no; regressors leave this empty
}

// DefaultClassifierSpace is the search grid for the performance
// classifier.
func DefaultClassifierSpace() ParamSpace {
	return ParamSpace{
		NEstimators:    []int{50, 100, 200, 300, 400, 500},
		MaxDepth:       []int{0, 5, 10, 20, 30},
		MinSamplesLeaf: []int{1, 2, 5},
		MaxFeatures:    []string{"sqrt", "log2", "0.3", "0.5", "0.7"},
		ClassWeight:    []bool{true, false},
	}
}

// DefaultRegressorSpace is the search grid for the price regressor.
func DefaultRegressorSpace() ParamSpace {
	return ParamSpace{
		NEstimators:    []int{100, 200, 300},
		MaxDepth:       []int{0, 10, 20},
		MinSamplesLeaf: []int{1, 2, 5},
		MaxFeatures:    []string{"sqrt", "log2", "0.5"},
	}
}

func (s ParamSpace) draw(rng *rand.Rand, seed int64) rforest.Config {
	cfg := rforest.Config{
		NEstimators:    s.NEstimators[rng.Intn(len(s.NEstimators))],
		MaxDepth:       s.MaxDepth[rng.Intn(len(s.MaxDepth))],
		MinSamplesLeaf: s.MinSamplesLeaf[rng.Intn(len(s.MinSamplesLeaf))],
		MaxFeatures:    s.MaxFeatures[rng.Intn(len(s.MaxFeatures))],
		Seed:           seed,
	}
	if len(s.ClassWeight) > 0 {
		cfg.Balanced = s.ClassWeight[rng.Intn(len(s.ClassWeight))]
	}
	return cfg
}

// SearchResult is the winning configuration of a random search and the
// cross-validation score that selected it.
type SearchResult struct {
	Config rforest.Config
	Score  float64
}

// RandomSearch draws iters candidate configurations and scores each
// with forward-chaining cross-validation on the training slice of the
// dataset, returning the best. Classifiers are scored by mean ROC AUC,
// regressors by negated mean absolute error, so higher is always
// better. Folds whose test block holds a single class are skipped for
// AUC; a candidate with no scorable fold is discarded.
func RandomSearch(ds *contracts.Dataset, trainIdx []int, kind rforest.Kind, space ParamSpace,
	iters, cvSplits int, seed int64, log zerolog.Logger) (SearchResult, error) {

	folds, err := TimeSeriesSplit(len(trainIdx), cvSplits)
	if err != nil {
		return SearchResult{}, err
	}

	rng := rand.New(rand.NewSource(seed))
	best := SearchResult{Score: math.Inf(-1)}
	seen := make(map[rforest.Config]bool)

	for it := 0; it < iters; it++ {
		cfg := space.draw(rng, seed)
		if seen[cfg] {
			continue
		}
		seen[cfg] = true

		score, scored, err := crossValidate(ds, trainIdx, folds, kind, cfg)
		if err != nil {
			return SearchResult{}, err
		}
		if scored == 0 {
			log.Warn().Interface("config", cfg).Msg("no scorable cv fold, candidate discarded")
			continue
		}

		log.Debug().
			Int("iteration", it).
			Int("n_estimators", cfg.NEstimators).
			Int("max_depth", cfg.MaxDepth).
			Int("min_samples_leaf", cfg.MinSamplesLeaf).
			Str("max_features", cfg.MaxFeatures).
			Bool("balanced", cfg.Balanced).
			Float64("score", score).
			Msg("cv candidate scored")

		if score > best.Score {
			best = SearchResult{Config: cfg, Score: score}
		}
	}

	if math.IsInf(best.Score, -1) {
		return SearchResult{}, fmt.Errorf("random search found no scorable candidate: %w", contracts.ErrInsufficientSamples)
	}
	return best, nil
}

func crossValidate(ds *contracts.Dataset, trainIdx []int, folds []Fold, kind rforest.Kind,
	cfg rforest.Config) (score float64, scored int, err error) {

	total := 0.0
	for _, fold := range folds {
		xTr, yTr := gather(ds, trainIdx, fold.Train)
		xTe, yTe := gather(ds, trainIdx, fold.Test)

		imp := dataset.FitMedianMatrix(xTr, len(ds.FeatureNames))
		for _, row := range xTr {
			imp.Transform(row)
		}
		for _, row := range xTe {
			imp.Transform(row)
		}

		var forest *rforest.Forest
		if kind == rforest.Classification {
			if singleClass(yTr) || singleClass(yTe) {
				continue
			}
			forest, err = rforest.TrainClassifier(xTr, yTr, cfg)
			if err != nil {
				return 0, 0, err
			}
			auc, aucErr := RocAUC(yTe, forest.ScoreAll(xTe))
			if aucErr != nil {
				continue
			}
			total += auc
		} else {
			forest, err = rforest.TrainRegressor(xTr, yTr, cfg)
			if err != nil {
				return 0, 0, err
			}
			m := EvaluateRegressor(yTe, forest.PredictAll(xTe))
			total += -m.MAE
		}
		scored++
	}
	if scored == 0 {
		return 0, 0, nil
	}
	return total / float64(scored), scored, nil
}

// gather copies the fold's rows out of the dataset so per-fold
// imputation never mutates the shared feature matrix.
func gather(ds *contracts.Dataset, trainIdx, fold []int) ([][]float64, []float64) {
	x := make([][]float64, len(fold))
	y := make([]float64, len(fold))
	for i, f := range fold {
		src := ds.X[trainIdx[f]]
		row := make([]float64, len(src))
		copy(row, src)
		x[i] = row
		y[i] = ds.Y[trainIdx[f]]
	}
	return x, y
}

func singleClass(y []float64) bool {
	for i := 1; i < len(y); i++ {
		if y[i] != y[0] {
			return false
		}
	}
	return true
}
