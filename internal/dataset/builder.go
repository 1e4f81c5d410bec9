package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// Target selects what the dataset's y vector holds.
type Target int

const (
	// TargetPerformanceLabel uses the cross-sectional performance label;
	// rows with an undefined label are dropped.
	TargetPerformanceLabel Target = iota

	// TargetForwardPrice uses the forward price at the labeler's horizon;
	// rows with an undefined forward price are dropped.
	TargetForwardPrice
)

// Builder assembles feature matrices and target vectors from labeled
// rows. Building is deterministic: identical input yields identical X
// and y.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new dataset builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("component", "dataset").Logger(),
	}
}

// Build produces (X, y, feature names, dates, tickers) from labeled rows.
// Declared features missing from the data are reported and skipped, not
// fatal. ±Inf values are coerced to NaN; imputation is a separate,
// explicit step so it can be fit on the training partition only.
// Returns contracts.ErrDataUnavailable when no usable rows remain or
// every feature value is undefined.
func (b *Builder) Build(rows []contracts.LabeledRow, features FeatureList, target Target) (*contracts.Dataset, error) {
	kept := make([]*contracts.LabeledRow, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		switch target {
		case TargetPerformanceLabel:
			if row.Label == contracts.LabelUndefined {
				continue
			}
		case TargetForwardPrice:
			if math.IsNaN(row.ForwardPrice) {
				continue
			}
		}
		kept = append(kept, row)
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("no rows with a defined target: %w", contracts.ErrDataUnavailable)
	}

	present, missing := partitionFeatures(kept[0], features)
	if len(missing) > 0 {
		b.log.Warn().
			Strs("missing_features", missing).
			Strs("using", present).
			Msg("declared features absent from data")
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("none of the declared features exist: %w", contracts.ErrDataUnavailable)
	}

	ds := &contracts.Dataset{
		X:            make([][]float64, len(kept)),
		Y:            make([]float64, len(kept)),
		FeatureNames: present,
		Dates:        make([]time.Time, len(kept)),
		Tickers:      make([]string, len(kept)),
	}

	anyDefined := false
	for i, row := range kept {
		x := make([]float64, len(present))
		for j, name := range present {
			v := row.Indicator(name)
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			if !math.IsNaN(v) {
				anyDefined = true
			}
			x[j] = v
		}
		ds.X[i] = x

		switch target {
		case TargetPerformanceLabel:
			ds.Y[i] = float64(row.Label)
		case TargetForwardPrice:
			ds.Y[i] = row.ForwardPrice
		}
		ds.Dates[i] = row.CollectedAt
		ds.Tickers[i] = row.Ticker
	}

	if !anyDefined {
		return nil, fmt.Errorf("feature matrix is entirely undefined: %w", contracts.ErrDataUnavailable)
	}

	b.log.Info().
		Int("rows", ds.Len()).
		Int("features", len(present)).
		Msg("dataset built")

	return ds, nil
}

// partitionFeatures splits declared features into present and missing,
// using one row as the schema witness (rows share a column set).
func partitionFeatures(row *contracts.LabeledRow, features FeatureList) (present, missing []string) {
	for _, name := range features {
		if row.HasIndicator(name) {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	return present, missing
}

// SortByDate orders the dataset rows chronologically in place, keeping
// X, Y, dates and tickers aligned. Time-aware splitting assumes this
// ordering.
func SortByDate(ds *contracts.Dataset) {
	idx := make([]int, ds.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ds.Dates[idx[a]].Before(ds.Dates[idx[b]])
	})

	x := make([][]float64, ds.Len())
	y := make([]float64, ds.Len())
	dates := make([]time.Time, ds.Len())
	tickers := make([]string, ds.Len())
	for pos, i := range idx {
		x[pos] = ds.X[i]
		y[pos] = ds.Y[i]
		dates[pos] = ds.Dates[i]
		tickers[pos] = ds.Tickers[i]
	}
	ds.X, ds.Y, ds.Dates, ds.Tickers = x, y, dates, tickers
}

// FitMedianImputer fits per-feature medians on the given row indices
// (typically the training partition). Features that are undefined across
// all given rows fall back to 0.
func FitMedianImputer(ds *contracts.Dataset, idx []int) *contracts.Imputer {
	rows := make([][]float64, len(idx))
	for i, r := range idx {
		rows[i] = ds.X[r]
	}
	return FitMedianMatrix(rows, len(ds.FeatureNames))
}

// FitMedianMatrix fits per-feature medians directly on a feature matrix.
func FitMedianMatrix(x [][]float64, nFeatures int) *contracts.Imputer {
	medians := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		var col []float64
		for i := range x {
			if v := x[i][j]; !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			medians[j] = 0
			continue
		}
		sort.Float64s(col)
		mid := len(col) / 2
		if len(col)%2 == 1 {
			medians[j] = col[mid]
		} else {
			medians[j] = (col[mid-1] + col[mid]) / 2
		}
	}
	return &contracts.Imputer{Values: medians}
}

// ApplyImputer transforms every row of X in place.
func ApplyImputer(ds *contracts.Dataset, im *contracts.Imputer) {
	for i := range ds.X {
		im.Transform(ds.X[i])
	}
}

// Vector builds a single inference-time feature vector from a row using
// the exact ordered feature list the model was trained with. Features the
// row does not carry become NaN for the imputer to fill.
func Vector(row *contracts.IndicatorRow, featureNames []string) []float64 {
	x := make([]float64, len(featureNames))
	for j, name := range featureNames {
		v := row.Indicator(name)
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		x[j] = v
	}
	return x
}
