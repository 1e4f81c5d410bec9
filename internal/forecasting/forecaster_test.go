package forecasting

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/internal/rforest"
)

type stubSource struct {
	rows []contracts.IndicatorRow
	err  error
}

func (s *stubSource) GetAll(ctx context.Context) ([]contracts.IndicatorRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contracts.IndicatorRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *stubSource) GetTickers(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubSource) GetLatestByTicker(ctx context.Context, ticker string) (*contracts.IndicatorRow, error) {
	return nil, contracts.ErrDataUnavailable
}

func panel(days int) []contracts.IndicatorRow {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	growth := map[string]float64{"AAAA3": 0.01, "BBBB3": -0.01, "CCCC3": 0.02}

	var rows []contracts.IndicatorRow
	for ticker, g := range growth {
		price := 100.0
		for d := 0; d < days; d++ {
			rows = append(rows, contracts.IndicatorRow{
				Ticker:      ticker,
				CollectedAt: base.AddDate(0, 0, d),
				Price:       price,
				Indicators: map[string]float64{
					"roe":               g,
					"pl":                10,
					contracts.FieldEPS:  2.0,
					contracts.FieldBVPS: 8.0,
				},
			})
			price *= 1 + g
		}
	}
	return rows
}

func fastConfig() rforest.Config {
	cfg := rforest.DefaultConfig()
	cfg.NEstimators = 10
	return cfg
}

func TestForecastMultiHorizon(t *testing.T) {
	source := &stubSource{rows: panel(40)}
	calcDate := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)

	var progressCalls []int
	f := New(source, fastConfig(), zerolog.Nop())
	rows, err := f.ForecastMultiHorizon(context.Background(), 3, calcDate,
		[]string{"AAAA3", "BBBB3"}, func(done, total int) {
			progressCalls = append(progressCalls, done)
			assert.Equal(t, 3, total)
		})
	require.NoError(t, err)

	// 2 tickers x 3 horizons, sorted by (ticker, horizon).
	require.Len(t, rows, 6)
	assert.Equal(t, []int{1, 2, 3}, progressCalls)
	for i, r := range rows {
		if i > 0 {
			prev := rows[i-1]
			less := prev.Ticker < r.Ticker ||
				(prev.Ticker == r.Ticker && prev.Horizon < r.Horizon)
			assert.True(t, less, "output must be sorted by (ticker, horizon)")
		}
		assert.Greater(t, r.PredictedPrice, 0.0)
		assert.Equal(t, calcDate.AddDate(0, 0, r.Horizon), r.ForecastDate)
	}

	// Unrequested ticker never appears.
	for _, r := range rows {
		assert.NotEqual(t, "CCCC3", r.Ticker)
	}
}

func TestForecastMultiHorizon_AllTickersWhenUnspecified(t *testing.T) {
	source := &stubSource{rows: panel(40)}
	calcDate := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)

	f := New(source, fastConfig(), zerolog.Nop())
	rows, err := f.ForecastMultiHorizon(context.Background(), 2, calcDate, nil, nil)
	require.NoError(t, err)

	tickers := map[string]bool{}
	for _, r := range rows {
		tickers[r.Ticker] = true
	}
	assert.Len(t, tickers, 3)
}

func TestForecastMultiHorizon_UnknownTickerSkipped(t *testing.T) {
	source := &stubSource{rows: panel(40)}
	calcDate := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)

	f := New(source, fastConfig(), zerolog.Nop())
	rows, err := f.ForecastMultiHorizon(context.Background(), 2, calcDate,
		[]string{"AAAA3", "ZZZZ9"}, nil)
	require.NoError(t, err)

	for _, r := range rows {
		assert.Equal(t, "AAAA3", r.Ticker)
	}
}

func TestForecastMultiHorizon_InvalidDays(t *testing.T) {
	f := New(&stubSource{rows: panel(10)}, fastConfig(), zerolog.Nop())
	_, err := f.ForecastMultiHorizon(context.Background(), 0, time.Now(), nil, nil)
	assert.Error(t, err)
}

func TestForecastMultiHorizon_NoRowBeforeCalcDate(t *testing.T) {
	source := &stubSource{rows: panel(10)}
	calcDate := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	f := New(source, fastConfig(), zerolog.Nop())
	_, err := f.ForecastMultiHorizon(context.Background(), 2, calcDate, nil, nil)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestForecastMultiHorizon_SourceFailure(t *testing.T) {
	source := &stubSource{err: contracts.ErrDataUnavailable}
	f := New(source, fastConfig(), zerolog.Nop())

	_, err := f.ForecastMultiHorizon(context.Background(), 2, time.Now(), nil, nil)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestForecastMultiHorizon_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(&stubSource{rows: panel(40)}, fastConfig(), zerolog.Nop())
	_, err := f.ForecastMultiHorizon(ctx, 3, time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
