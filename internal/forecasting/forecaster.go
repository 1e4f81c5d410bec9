package forecasting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/internal/dataset"
	"github.com/MateusRestier/insight-invest/internal/features"
	"github.com/MateusRestier/insight-invest/internal/labeling"
	"github.com/MateusRestier/insight-invest/internal/rforest"
	"github.com/MateusRestier/insight-invest/internal/training"
)

// Forecaster trains one forward-price regressor per horizon and
// predicts the price path of each requested ticker.
type Forecaster struct {
	source contracts.IndicatorSource
	cfg    rforest.Config
	log    zerolog.Logger
	base   zerolog.Logger
}

// New creates a forecaster using cfg for every per-horizon regressor.
// A zero-value cfg falls back to rforest.DefaultConfig.
func New(source contracts.IndicatorSource, cfg rforest.Config, log zerolog.Logger) *Forecaster {
	if cfg.NEstimators == 0 {
		cfg = rforest.DefaultConfig()
	}
	return &Forecaster{
		source: source,
		cfg:    cfg,
		log:    log.With().Str("component", "forecasting").Logger(),
		base:   log,
	}
}

// ForecastMultiHorizon predicts, for each requested ticker, the price
// at every horizon 1..maxDays counted from calcDate. For each horizon a
// dedicated regressor is trained on rows collected at or before
// calcDate, with the forward-price target recomputed at that horizon so
// no training row peeks past calcDate's information set. Tickers with
// no usable row are skipped and logged. Results come back sorted by
// (ticker, horizon); progress, when non-nil, is called after each
// horizon completes.
func (f *Forecaster) ForecastMultiHorizon(ctx context.Context, maxDays int, calcDate time.Time,
	tickers []string, progress contracts.ProgressFunc) ([]contracts.ForecastRow, error) {

	if maxDays < 1 {
		return nil, fmt.Errorf("horizon must be at least 1 day, got %d", maxDays)
	}

	rows, err := f.source.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indicators: %w", err)
	}
	features.NewBuilder(f.base).Apply(rows)

	latest := latestRowPerTicker(rows, tickers, calcDate)
	if len(latest) == 0 {
		return nil, fmt.Errorf("no ticker has a row at or before %s: %w",
			calcDate.Format("2006-01-02"), contracts.ErrDataUnavailable)
	}
	for _, tk := range tickers {
		if _, ok := latest[tk]; !ok {
			f.log.Warn().Str("ticker", tk).Msg("no usable row, ticker skipped")
		}
	}

	labeler := labeling.NewLabeler(f.base)
	builder := dataset.NewBuilder(f.base)
	feats := dataset.DefaultFeatures()

	var out []contracts.ForecastRow
	for h := 1; h <= maxDays; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		labeled := labeler.ForwardPrices(rows, h)
		ds, err := builder.Build(labeled, feats, dataset.TargetForwardPrice)
		if err != nil {
			if errors.Is(err, contracts.ErrDataUnavailable) {
				f.log.Warn().Int("horizon", h).Msg("no regression samples, horizon skipped")
				if progress != nil {
					progress(h, maxDays)
				}
				continue
			}
			return nil, fmt.Errorf("horizon %d: build dataset: %w", h, err)
		}
		dataset.SortByDate(ds)

		forest, imputer, err := training.TrainRegressor(ds, calcDate, f.seeded(h), f.log)
		if err != nil {
			if errors.Is(err, contracts.ErrInsufficientSamples) {
				f.log.Warn().Int("horizon", h).Msg("too few training rows, horizon skipped")
				if progress != nil {
					progress(h, maxDays)
				}
				continue
			}
			return nil, fmt.Errorf("horizon %d: %w", h, err)
		}

		for _, tk := range sortedKeys(latest) {
			row := latest[tk]
			x := dataset.Vector(row, ds.FeatureNames)
			imputer.Transform(x)
			out = append(out, contracts.ForecastRow{
				Ticker:         tk,
				Horizon:        h,
				ForecastDate:   calcDate.AddDate(0, 0, h),
				PredictedPrice: forest.Predict(x),
			})
		}

		if progress != nil {
			progress(h, maxDays)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no horizon produced a forecast: %w", contracts.ErrDataUnavailable)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].Horizon < out[j].Horizon
	})
	return out, nil
}

// seeded varies the base seed per horizon so horizons do not share
// bootstrap streams while the whole run stays reproducible.
func (f *Forecaster) seeded(horizon int) rforest.Config {
	cfg := f.cfg
	cfg.Seed += int64(horizon) * 1000
	return cfg
}

// latestRowPerTicker picks, for each requested ticker, its most recent
// row dated at or before calcDate. An empty ticker list means all
// tickers present in rows.
func latestRowPerTicker(rows []contracts.IndicatorRow, tickers []string, calcDate time.Time) map[string]*contracts.IndicatorRow {
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[t] = true
	}

	latest := make(map[string]*contracts.IndicatorRow)
	for i := range rows {
		r := &rows[i]
		if len(want) > 0 && !want[r.Ticker] {
			continue
		}
		if r.CollectedAt.After(calcDate) {
			continue
		}
		if cur, ok := latest[r.Ticker]; !ok || r.CollectedAt.After(cur.CollectedAt) {
			latest[r.Ticker] = r
		}
	}
	return latest
}

func sortedKeys(m map[string]*contracts.IndicatorRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
