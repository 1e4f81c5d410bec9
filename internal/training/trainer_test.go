package training

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/pkg/config"
)

type memSource struct {
	rows []contracts.IndicatorRow
	err  error
}

func (s *memSource) GetAll(ctx context.Context) ([]contracts.IndicatorRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contracts.IndicatorRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *memSource) GetTickers(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var tickers []string
	for _, r := range s.rows {
		if !seen[r.Ticker] {
			seen[r.Ticker] = true
			tickers = append(tickers, r.Ticker)
		}
	}
	return tickers, nil
}

func (s *memSource) GetLatestByTicker(ctx context.Context, ticker string) (*contracts.IndicatorRow, error) {
	var best *contracts.IndicatorRow
	for i := range s.rows {
		r := &s.rows[i]
		if r.Ticker != ticker {
			continue
		}
		if best == nil || r.CollectedAt.After(best.CollectedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, contracts.ErrDataUnavailable
	}
	return best, nil
}

type memStore struct {
	saved map[string]*contracts.ModelArtifact
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]*contracts.ModelArtifact{}}
}

func (s *memStore) Save(artifact *contracts.ModelArtifact) error {
	s.saved[artifact.Name] = artifact
	return nil
}

func (s *memStore) Load(name string) (*contracts.ModelArtifact, error) {
	a, ok := s.saved[name]
	if !ok {
		return nil, contracts.ErrDataUnavailable
	}
	return a, nil
}

// trendPanel builds a daily panel where each ticker's growth rate is
// also exposed as its roe indicator, so the labels are learnable from
// the features.
func trendPanel(days int) []contracts.IndicatorRow {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	growth := []struct {
		ticker string
		g      float64
	}{
		{"AAAA3", -0.02},
		{"BBBB3", 0.00},
		{"CCCC3", 0.01},
		{"DDDD3", 0.03},
	}

	var rows []contracts.IndicatorRow
	for _, tg := range growth {
		price := 100.0
		for d := 0; d < days; d++ {
			rows = append(rows, contracts.IndicatorRow{
				Ticker:      tg.ticker,
				CollectedAt: base.AddDate(0, 0, d),
				Price:       price,
				Indicators: map[string]float64{
					"roe":               tg.g,
					contracts.FieldEPS:  2.0,
					contracts.FieldBVPS: 8.0,
				},
			})
			price *= 1 + tg.g
		}
	}
	return rows
}

func testTrainingConfig() config.TrainingConfig {
	return config.TrainingConfig{
		HorizonDays:   2,
		QuantileLower: 0.25,
		QuantileUpper: 0.75,
		HoldoutFrac:   0.20,
		CVSplits:      3,
		SearchIters:   3,
		Seed:          42,
	}
}

func TestTrainer_RunClassifier(t *testing.T) {
	source := &memSource{rows: trendPanel(60)}
	store := newMemStore()

	trainer := NewTrainer(source, store, testTrainingConfig(), zerolog.Nop())
	report, err := trainer.RunClassifier(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StagePersisted, trainer.Stage())
	assert.Greater(t, report.Samples, 0)
	assert.Equal(t, report.Samples, report.TrainSize+report.HoldoutSize)

	// The growth rate is in the features, so the model should separate
	// winners from losers well.
	assert.Greater(t, report.Metrics.Accuracy, 0.9)

	artifact := store.saved[ClassifierModelName]
	require.NotNil(t, artifact, "artifact must be persisted")
	assert.Equal(t, contracts.ModelClassifier, artifact.Kind)
	assert.Equal(t, 2, artifact.HorizonDays)
	assert.NotEmpty(t, artifact.FeatureNames)
	require.NotNil(t, artifact.Imputer)
	assert.Len(t, artifact.Imputer.Values, len(artifact.FeatureNames))
	assert.NotEmpty(t, artifact.Model)

	require.NotEmpty(t, report.Importances)
	assert.GreaterOrEqual(t, report.Importances[0].Score, report.Importances[len(report.Importances)-1].Score)
}

func TestTrainer_RunClassifier_HoldoutComparison(t *testing.T) {
	trainer := NewTrainer(&memSource{rows: trendPanel(60)}, newMemStore(), testTrainingConfig(), zerolog.Nop())
	report, err := trainer.RunClassifier(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Holdout, report.HoldoutSize)

	correct := 0
	for _, p := range report.Holdout {
		assert.NotEmpty(t, p.Ticker)
		assert.True(t, p.Date.After(report.Cutoff), "holdout row %s dated %s is not after the cutoff", p.Ticker, p.Date)
		assert.Contains(t, []float64{0, 1}, p.Actual)
		assert.Contains(t, []float64{0, 1}, p.Predicted)
		assert.GreaterOrEqual(t, p.Score, 0.0)
		assert.LessOrEqual(t, p.Score, 1.0)
		if p.Actual == p.Predicted {
			correct++
		}
	}

	// The per-row comparison must agree with the aggregate metrics.
	assert.InDelta(t, report.Metrics.Accuracy, float64(correct)/float64(len(report.Holdout)), 1e-12)
}

func TestHoldoutPredictions_Alignment(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ds := &contracts.Dataset{
		X:       [][]float64{{1}, {2}, {3}, {4}},
		Y:       []float64{10, 20, 30, 40},
		Dates:   []time.Time{base, base.AddDate(0, 0, 1), base.AddDate(0, 0, 2), base.AddDate(0, 0, 3)},
		Tickers: []string{"AAAA3", "BBBB3", "CCCC3", "DDDD3"},
	}

	got := HoldoutPredictions(ds, []int{3, 1}, []float64{41, 19}, []float64{0.9, 0.2})
	require.Len(t, got, 2)

	assert.Equal(t, "DDDD3", got[0].Ticker)
	assert.Equal(t, base.AddDate(0, 0, 3), got[0].Date)
	assert.Equal(t, 40.0, got[0].Actual)
	assert.Equal(t, 41.0, got[0].Predicted)
	assert.Equal(t, 0.9, got[0].Score)

	assert.Equal(t, "BBBB3", got[1].Ticker)
	assert.Equal(t, 20.0, got[1].Actual)
	assert.Equal(t, 19.0, got[1].Predicted)

	// Regressors carry no separate score; the prediction stands in.
	noScores := HoldoutPredictions(ds, []int{0}, []float64{11}, nil)
	require.Len(t, noScores, 1)
	assert.Equal(t, 11.0, noScores[0].Score)
}

func TestTrainer_RunClassifier_Deterministic(t *testing.T) {
	runOnce := func() *ClassifierReport {
		trainer := NewTrainer(&memSource{rows: trendPanel(40)}, newMemStore(), testTrainingConfig(), zerolog.Nop())
		report, err := trainer.RunClassifier(context.Background())
		require.NoError(t, err)
		return report
	}

	a, b := runOnce(), runOnce()
	assert.Equal(t, a.Best.Config, b.Best.Config)
	assert.InDelta(t, a.Metrics.Accuracy, b.Metrics.Accuracy, 1e-12)
	assert.Equal(t, string(a.Artifact.Model), string(b.Artifact.Model))
}

func TestTrainer_RunClassifier_SourceFailure(t *testing.T) {
	source := &memSource{err: contracts.ErrDataUnavailable}
	trainer := NewTrainer(source, newMemStore(), testTrainingConfig(), zerolog.Nop())

	_, err := trainer.RunClassifier(context.Background())
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	assert.Equal(t, StageFailed, trainer.Stage())
}

func TestTrainer_RunClassifier_TooLittleData(t *testing.T) {
	// A handful of rows cannot survive labeling + splitting + CV.
	trainer := NewTrainer(&memSource{rows: trendPanel(3)}, newMemStore(), testTrainingConfig(), zerolog.Nop())

	_, err := trainer.RunClassifier(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StageFailed, trainer.Stage())
}

func TestTrainRegressor_CutoffRespected(t *testing.T) {
	rows := trendPanel(40)
	// Build the regression dataset by hand through the public path.
	src := &memSource{rows: rows}
	all, err := src.GetAll(context.Background())
	require.NoError(t, err)

	ds := regressionDataset(t, all, 2)
	cutoff := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)

	forest, imputer, err := TrainRegressor(ds, cutoff, regressorTestConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, forest)
	require.NotNil(t, imputer)

	// Predictions land in the observed price range.
	pred := forest.Predict(ds.X[0])
	assert.Greater(t, pred, 0.0)
	assert.Less(t, pred, 1000.0)
}

func TestTrainRegressor_NoRowsBeforeCutoff(t *testing.T) {
	rows := trendPanel(10)
	ds := regressionDataset(t, rows, 2)

	cutoff := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := TrainRegressor(ds, cutoff, regressorTestConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, contracts.ErrInsufficientSamples)
}
