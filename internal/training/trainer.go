package training

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/internal/dataset"
	"github.com/MateusRestier/insight-invest/internal/features"
	"github.com/MateusRestier/insight-invest/internal/labeling"
	"github.com/MateusRestier/insight-invest/internal/rforest"
	"github.com/MateusRestier/insight-invest/pkg/config"
)

// ClassifierModelName is the artifact name the trainer persists under
// and the recommender loads from.
const ClassifierModelName = "performance_classifier"

// Stage is the trainer's pipeline position, exposed for observers.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageLoading         Stage = "loading"
	StageFeatureBuilding Stage = "feature_building"
	StageLabeling        Stage = "labeling"
	StageSplitting       Stage = "splitting"
	StageTuning          Stage = "tuning"
	StageTrained         Stage = "trained"
	StagePersisted       Stage = "persisted"
	StageFailed          Stage = "failed"
)

// ClassifierReport summarizes a full classifier training run.
type ClassifierReport struct {
	Samples     int
	TrainSize   int
	HoldoutSize int
	Cutoff      time.Time
	Best        SearchResult
	Metrics     ClassificationMetrics
	Holdout     []HoldoutPrediction
	Importances []FeatureImportance
	Artifact    *contracts.ModelArtifact
}

// HoldoutPrediction pairs one held-out observation with the model's
// output for it, so callers can render real-vs-predicted comparisons
// without retraining. Score is the positive-class probability for
// classifiers and equals Predicted for regressors.
type HoldoutPrediction struct {
	Ticker    string
	Date      time.Time
	Actual    float64
	Predicted float64
	Score     float64
}

// HoldoutPredictions aligns per-row model output with the held-out
// rows' tickers, dates and true targets. idx indexes into ds; yPred and
// scores are parallel to idx. A nil scores falls back to yPred.
func HoldoutPredictions(ds *contracts.Dataset, idx []int, yPred, scores []float64) []HoldoutPrediction {
	if scores == nil {
		scores = yPred
	}
	out := make([]HoldoutPrediction, len(idx))
	for i, r := range idx {
		out[i] = HoldoutPrediction{
			Ticker:    ds.Tickers[r],
			Date:      ds.Dates[r],
			Actual:    ds.Y[r],
			Predicted: yPred[i],
			Score:     scores[i],
		}
	}
	return out
}

// FeatureImportance pairs a feature name with its normalized
// mean-decrease-in-impurity weight.
type FeatureImportance struct {
	Name  string
	Score float64
}

// Trainer runs the end-to-end training pipeline: load indicators,
// derive features, label, split chronologically, tune, refit, evaluate
// and persist.
type Trainer struct {
	source contracts.IndicatorSource
	store  contracts.ModelStore
	cfg    config.TrainingConfig
	log    zerolog.Logger
	base   zerolog.Logger

	mu    sync.Mutex
	stage Stage
}

func NewTrainer(source contracts.IndicatorSource, store contracts.ModelStore,
	cfg config.TrainingConfig, log zerolog.Logger) *Trainer {
	return &Trainer{
		source: source,
		store:  store,
		cfg:    cfg,
		log:    log.With().Str("component", "training").Logger(),
		base:   log,
		stage:  StageIdle,
	}
}

// Stage returns the trainer's current pipeline stage.
func (t *Trainer) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

func (t *Trainer) setStage(s Stage) {
	t.mu.Lock()
	t.stage = s
	t.mu.Unlock()
	t.log.Info().Str("stage", string(s)).Msg("stage changed")
}

func (t *Trainer) fail(err error) error {
	t.setStage(StageFailed)
	return err
}

// RunClassifier trains, evaluates and persists the performance
// classifier.
func (t *Trainer) RunClassifier(ctx context.Context) (*ClassifierReport, error) {
	t.setStage(StageLoading)
	rows, err := t.source.GetAll(ctx)
	if err != nil {
		return nil, t.fail(fmt.Errorf("load indicators: %w", err))
	}

	t.setStage(StageFeatureBuilding)
	features.NewBuilder(t.base).Apply(rows)

	t.setStage(StageLabeling)
	labeled := labeling.NewLabeler(t.base).LabelForwardPerformance(
		rows, t.cfg.HorizonDays, t.cfg.QuantileLower, t.cfg.QuantileUpper)

	ds, err := dataset.NewBuilder(t.base).Build(labeled, dataset.DefaultFeatures(), dataset.TargetPerformanceLabel)
	if err != nil {
		return nil, t.fail(fmt.Errorf("build dataset: %w", err))
	}
	dataset.SortByDate(ds)

	t.setStage(StageSplitting)
	trainIdx, holdIdx, cutoff, err := SplitChronological(ds, t.cfg.HoldoutFrac)
	if err != nil {
		return nil, t.fail(err)
	}
	t.log.Info().
		Int("samples", ds.Len()).
		Int("train", len(trainIdx)).
		Int("holdout", len(holdIdx)).
		Time("cutoff", cutoff).
		Msg("chronological split")

	t.setStage(StageTuning)
	best, err := RandomSearch(ds, trainIdx, rforest.Classification, DefaultClassifierSpace(),
		t.cfg.SearchIters, t.cfg.CVSplits, t.cfg.Seed, t.log)
	if err != nil {
		return nil, t.fail(fmt.Errorf("hyperparameter search: %w", err))
	}
	t.log.Info().
		Float64("cv_score", best.Score).
		Int("n_estimators", best.Config.NEstimators).
		Int("max_depth", best.Config.MaxDepth).
		Int("min_samples_leaf", best.Config.MinSamplesLeaf).
		Str("max_features", best.Config.MaxFeatures).
		Bool("balanced", best.Config.Balanced).
		Msg("best configuration selected")

	// The imputer is fit on the training partition only and travels
	// with the artifact so inference fills gaps the same way.
	imputer := dataset.FitMedianImputer(ds, trainIdx)
	dataset.ApplyImputer(ds, imputer)

	xTr, yTr := subset(ds, trainIdx)
	forest, err := rforest.TrainClassifier(xTr, yTr, best.Config)
	if err != nil {
		return nil, t.fail(fmt.Errorf("final fit: %w", err))
	}
	t.setStage(StageTrained)

	xHo, yHo := subset(ds, holdIdx)
	yPred := forest.PredictAll(xHo)
	scores := forest.ScoreAll(xHo)
	metrics := EvaluateClassifier(yHo, yPred, scores)
	t.log.Info().
		Float64("accuracy", metrics.Accuracy).
		Bool("auc_computable", metrics.AUCComputable).
		Float64("auc", metrics.AUC).
		Msg("holdout evaluation")

	blob, err := forest.Marshal()
	if err != nil {
		return nil, t.fail(fmt.Errorf("encode forest: %w", err))
	}
	artifact := &contracts.ModelArtifact{
		Name:         ClassifierModelName,
		Kind:         contracts.ModelClassifier,
		FeatureNames: append([]string(nil), ds.FeatureNames...),
		Imputer:      imputer,
		Model:        blob,
		HorizonDays:  t.cfg.HorizonDays,
		TrainedAt:    time.Now(),
	}
	if err := t.store.Save(artifact); err != nil {
		return nil, t.fail(fmt.Errorf("persist model: %w", err))
	}
	t.setStage(StagePersisted)

	return &ClassifierReport{
		Samples:     ds.Len(),
		TrainSize:   len(trainIdx),
		HoldoutSize: len(holdIdx),
		Cutoff:      cutoff,
		Best:        best,
		Metrics:     metrics,
		Holdout:     HoldoutPredictions(ds, holdIdx, yPred, scores),
		Importances: rankImportances(ds.FeatureNames, forest.FeatureImportances()),
		Artifact:    artifact,
	}, nil
}

// TrainRegressor fits a forward-price regressor on the rows of ds dated
// at or before cutoff and returns it with the imputer fit on the same
// partition. Used per horizon by the forecaster.
func TrainRegressor(ds *contracts.Dataset, cutoff time.Time, cfg rforest.Config,
	log zerolog.Logger) (*rforest.Forest, *contracts.Imputer, error) {

	trainIdx, _ := SplitByCutoff(ds, cutoff)
	if len(trainIdx) < 2 {
		return nil, nil, fmt.Errorf("%d training rows before %s: %w",
			len(trainIdx), cutoff.Format("2006-01-02"), contracts.ErrInsufficientSamples)
	}

	imputer := dataset.FitMedianImputer(ds, trainIdx)
	x, y := subset(ds, trainIdx)
	for i := range x {
		imputer.Transform(x[i])
	}

	forest, err := rforest.TrainRegressor(x, y, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Int("train", len(trainIdx)).Time("cutoff", cutoff).Msg("regressor fit")
	return forest, imputer, nil
}

// subset copies the selected rows so later transforms cannot alias the
// dataset.
func subset(ds *contracts.Dataset, idx []int) ([][]float64, []float64) {
	x := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, r := range idx {
		row := make([]float64, len(ds.X[r]))
		copy(row, ds.X[r])
		x[i] = row
		y[i] = ds.Y[r]
	}
	return x, y
}

func rankImportances(names []string, scores []float64) []FeatureImportance {
	out := make([]FeatureImportance, len(names))
	for i, name := range names {
		out[i] = FeatureImportance{Name: name, Score: scores[i]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
