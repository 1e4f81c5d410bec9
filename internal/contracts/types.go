package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// Indicator field names shared across the pipeline. These match the column
// names of the fundamental indicators table, which the scraper side of the
// system owns.
const (
	FieldEPS           = "lpa" // lucro por ação (earnings per share)
	FieldBVPS          = "vpa" // valor patrimonial por ação (book value per share)
	FieldGrahamValue   = "vi_graham"
	FieldPriceToGraham = "preco_sobre_graham"
)

// IndicatorRow is one fundamental snapshot for a ticker on a collection
// date. Rows are unique per (Ticker, CollectedAt). Indicators holds the
// ratio columns keyed by column name; a NULL column is NaN, never zero.
type IndicatorRow struct {
	Ticker      string
	CollectedAt time.Time
	Price       float64
	Indicators  map[string]float64
}

// Indicator returns the named indicator, or NaN when it is absent.
func (r *IndicatorRow) Indicator(name string) float64 {
	if v, ok := r.Indicators[name]; ok {
		return v
	}
	return math.NaN()
}

// SetIndicator stores a derived indicator on the row.
func (r *IndicatorRow) SetIndicator(name string, v float64) {
	if r.Indicators == nil {
		r.Indicators = make(map[string]float64)
	}
	r.Indicators[name] = v
}

// HasIndicator reports whether the named column exists on the row,
// regardless of whether its value is defined.
func (r *IndicatorRow) HasIndicator(name string) bool {
	_, ok := r.Indicators[name]
	return ok
}

// EarningsPerShare returns the LPA column.
func (r *IndicatorRow) EarningsPerShare() float64 {
	return r.Indicator(FieldEPS)
}

// BookValuePerShare returns the VPA column.
func (r *IndicatorRow) BookValuePerShare() float64 {
	return r.Indicator(FieldBVPS)
}

// DateKey returns the collection date in YYYY-MM-DD form, used for
// cross-sectional grouping.
func (r *IndicatorRow) DateKey() string {
	return r.CollectedAt.Format("2006-01-02")
}

// Performance labels. Undefined rows fall between the cross-sectional
// quantile thresholds and are excluded from training.
const (
	LabelUndefined    int8 = -1
	LabelUnderperform int8 = 0
	LabelOutperform   int8 = 1
)

// LabeledRow is an IndicatorRow augmented with its forward price at a
// fixed horizon and the resulting cross-sectional performance label.
// ForwardPrice and ForwardReturn are NaN when undefined.
type LabeledRow struct {
	IndicatorRow

	ForwardPrice  float64
	ForwardReturn float64
	Label         int8
}

// Dataset is a feature matrix X aligned row-by-row with target vector Y,
// the collection date and ticker of every row, and the ordered feature
// names the columns were built from. len(X) == len(Y) always.
type Dataset struct {
	X            [][]float64
	Y            []float64
	FeatureNames []string
	Dates        []time.Time
	Tickers      []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.X)
}

// Imputer fills undefined feature values with per-feature constants,
// aligned to the feature order the model was trained with. Fitted on the
// training partition only and persisted with the model so inference-time
// transforms stay consistent.
type Imputer struct {
	Values []float64 `json:"values"`
}

// ZeroImputer returns an imputer that fills every undefined value with 0,
// the sentinel policy used at inference when no fitted imputer exists.
func ZeroImputer(n int) *Imputer {
	return &Imputer{Values: make([]float64, n)}
}

// Transform replaces NaN entries of x in place.
func (im *Imputer) Transform(x []float64) {
	for i := range x {
		if math.IsNaN(x[i]) && i < len(im.Values) {
			x[i] = im.Values[i]
		}
	}
}

// ModelKind distinguishes persisted estimators.
type ModelKind string

const (
	ModelClassifier ModelKind = "classifier"
	ModelRegressor  ModelKind = "regressor"
)

// ModelArtifact is the unit the model store persists: an opaque estimator
// blob plus the exact ordered feature list it was fit on. The same ordering
// must be used at inference time.
type ModelArtifact struct {
	Name         string          `json:"name"`
	Kind         ModelKind       `json:"kind"`
	FeatureNames []string        `json:"feature_names"`
	Imputer      *Imputer        `json:"imputer,omitempty"`
	Model        json.RawMessage `json:"model"`
	HorizonDays  int             `json:"horizon_days,omitempty"`
	TrainedAt    time.Time       `json:"trained_at"`
}

// ForecastRow is one multi-horizon forecast output row.
type ForecastRow struct {
	Ticker         string
	Horizon        int // days ahead
	ForecastDate   time.Time
	PredictedPrice float64
}

// ProgressFunc reports batch progress after each completed unit of work
// (one horizon, one ticker). Callers render progress; the core never polls.
type ProgressFunc func(done, total int)
