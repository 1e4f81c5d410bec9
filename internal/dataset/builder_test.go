package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

func labeledRow(ticker string, date time.Time, label int8, fwdPrice float64, indicators map[string]float64) contracts.LabeledRow {
	return contracts.LabeledRow{
		IndicatorRow: contracts.IndicatorRow{
			Ticker:      ticker,
			CollectedAt: date,
			Indicators:  indicators,
		},
		ForwardPrice: fwdPrice,
		Label:        label,
	}
}

func testDay(n int) time.Time {
	return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestBuild_PerformanceTargetDropsUndefined(t *testing.T) {
	feats := FeatureList{"pl", "roe"}
	rows := []contracts.LabeledRow{
		labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(), map[string]float64{"pl": 8, "roe": 0.2}),
		labeledRow("BBBB3", testDay(0), contracts.LabelUndefined, math.NaN(), map[string]float64{"pl": 9, "roe": 0.1}),
		labeledRow("CCCC3", testDay(1), contracts.LabelUnderperform, math.NaN(), map[string]float64{"pl": 30, "roe": -0.1}),
	}

	ds, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"pl", "roe"}, ds.FeatureNames)
	assert.Equal(t, []float64{1, 0}, ds.Y)
	assert.Equal(t, []string{"AAAA3", "CCCC3"}, ds.Tickers)
}

func TestBuild_ForwardPriceTarget(t *testing.T) {
	feats := FeatureList{"pl"}
	rows := []contracts.LabeledRow{
		labeledRow("AAAA3", testDay(0), contracts.LabelUndefined, 12.5, map[string]float64{"pl": 8}),
		labeledRow("BBBB3", testDay(0), contracts.LabelUndefined, math.NaN(), map[string]float64{"pl": 9}),
	}

	ds, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetForwardPrice)
	require.NoError(t, err)

	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, []float64{12.5}, ds.Y)
}

func TestBuild_MissingFeaturesSkippedNotFatal(t *testing.T) {
	feats := FeatureList{"pl", "does_not_exist", "roe"}
	rows := []contracts.LabeledRow{
		labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(), map[string]float64{"pl": 8, "roe": 0.2}),
	}

	ds, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
	require.NoError(t, err)

	assert.Equal(t, []string{"pl", "roe"}, ds.FeatureNames)
	assert.Len(t, ds.X[0], 2)
}

func TestBuild_InfBecomesNaN(t *testing.T) {
	feats := FeatureList{"pl", "roe"}
	rows := []contracts.LabeledRow{
		labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(),
			map[string]float64{"pl": math.Inf(1), "roe": 0.2}),
	}

	ds, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(ds.X[0][0]))
	assert.InDelta(t, 0.2, ds.X[0][1], 1e-12)
}

func TestBuild_ErrDataUnavailable(t *testing.T) {
	feats := FeatureList{"pl"}

	t.Run("no rows with target", func(t *testing.T) {
		rows := []contracts.LabeledRow{
			labeledRow("AAAA3", testDay(0), contracts.LabelUndefined, math.NaN(), map[string]float64{"pl": 8}),
		}
		_, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
		assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	})

	t.Run("all features undefined", func(t *testing.T) {
		rows := []contracts.LabeledRow{
			labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(),
				map[string]float64{"pl": math.NaN()}),
		}
		_, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
		assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	})

	t.Run("no declared feature exists", func(t *testing.T) {
		rows := []contracts.LabeledRow{
			labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(),
				map[string]float64{"other": 1}),
		}
		_, err := NewBuilder(zerolog.Nop()).Build(rows, FeatureList{"pl"}, TargetPerformanceLabel)
		assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	})
}

func TestBuild_Deterministic(t *testing.T) {
	feats := FeatureList{"pl", "roe"}
	rows := []contracts.LabeledRow{
		labeledRow("AAAA3", testDay(0), contracts.LabelOutperform, math.NaN(), map[string]float64{"pl": 8, "roe": 0.2}),
		labeledRow("BBBB3", testDay(1), contracts.LabelUnderperform, math.NaN(), map[string]float64{"pl": 9, "roe": 0.1}),
	}

	a, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
	require.NoError(t, err)
	b, err := NewBuilder(zerolog.Nop()).Build(rows, feats, TargetPerformanceLabel)
	require.NoError(t, err)

	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, a.FeatureNames, b.FeatureNames)
}

func TestSortByDate(t *testing.T) {
	ds := &contracts.Dataset{
		X:            [][]float64{{3}, {1}, {2}},
		Y:            []float64{3, 1, 2},
		FeatureNames: []string{"pl"},
		Dates:        []time.Time{testDay(3), testDay(1), testDay(2)},
		Tickers:      []string{"CCCC3", "AAAA3", "BBBB3"},
	}

	SortByDate(ds)

	assert.Equal(t, []float64{1, 2, 3}, ds.Y)
	assert.Equal(t, []string{"AAAA3", "BBBB3", "CCCC3"}, ds.Tickers)
	assert.True(t, ds.Dates[0].Before(ds.Dates[1]) && ds.Dates[1].Before(ds.Dates[2]))
}

func TestFitMedianImputer(t *testing.T) {
	nan := math.NaN()
	ds := &contracts.Dataset{
		X: [][]float64{
			{1, nan, nan},
			{2, 10, nan},
			{3, 20, nan},
			{4, 30, nan},
		},
		FeatureNames: []string{"a", "b", "c"},
	}

	// Fit on the first three rows only; the fourth row's values must not
	// move the medians.
	im := FitMedianImputer(ds, []int{0, 1, 2})

	assert.InDelta(t, 2.0, im.Values[0], 1e-12)  // median of 1,2,3
	assert.InDelta(t, 15.0, im.Values[1], 1e-12) // median of 10,20
	assert.InDelta(t, 0.0, im.Values[2], 1e-12)  // all-NaN column falls back to 0

	ApplyImputer(ds, im)
	assert.InDelta(t, 15.0, ds.X[0][1], 1e-12)
	for i := range ds.X {
		for j := range ds.X[i] {
			assert.False(t, math.IsNaN(ds.X[i][j]), "X[%d][%d] still NaN", i, j)
		}
	}
}

func TestVector(t *testing.T) {
	row := contracts.IndicatorRow{
		Ticker: "AAAA3",
		Indicators: map[string]float64{
			"pl":  8,
			"roe": math.Inf(-1),
		},
	}

	x := Vector(&row, []string{"pl", "roe", "absent"})
	assert.InDelta(t, 8.0, x[0], 1e-12)
	assert.True(t, math.IsNaN(x[1]), "inf must become NaN")
	assert.True(t, math.IsNaN(x[2]), "absent feature must be NaN")
}

func TestDefaultFeatures(t *testing.T) {
	feats := DefaultFeatures()
	assert.True(t, feats.Contains("pl"))
	assert.True(t, feats.Contains(contracts.FieldPriceToGraham))
	assert.False(t, feats.Contains(contracts.FieldGrahamValue), "raw intrinsic value is not a model input")
}
