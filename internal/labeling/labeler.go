package labeling

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// minCrossSection is the minimum number of valid forward returns a day's
// cross-section needs before quantile thresholds are computed. Smaller
// days are skipped entirely.
const minCrossSection = 4

// Labeler computes per-ticker forward prices at a fixed horizon and
// assigns cross-sectional top/bottom quantile labels per collection date.
//
// The forward price lookup is a per-ticker forward asof join on calendar
// dates, never a fixed-offset row shift: tickers are sampled irregularly,
// so "H days ahead" means the first row at or after collected_at + H days.
// Labels therefore depend only on same-ticker future rows and same-day
// cross-sectional peers.
type Labeler struct {
	log zerolog.Logger
}

// NewLabeler creates a new labeler.
func NewLabeler(log zerolog.Logger) *Labeler {
	return &Labeler{
		log: log.With().Str("component", "labeling").Logger(),
	}
}

// ForwardPrices fills ForwardPrice and ForwardReturn for every row at the
// given horizon, leaving labels undefined. Output is sorted by
// (ticker, collected_at). Rows with no future row within the dataset keep
// NaN forward values.
func (l *Labeler) ForwardPrices(rows []contracts.IndicatorRow, horizonDays int) []contracts.LabeledRow {
	labeled := make([]contracts.LabeledRow, len(rows))
	for i := range rows {
		labeled[i] = contracts.LabeledRow{
			IndicatorRow:  rows[i],
			ForwardPrice:  math.NaN(),
			ForwardReturn: math.NaN(),
			Label:         contracts.LabelUndefined,
		}
	}

	sort.SliceStable(labeled, func(i, j int) bool {
		if labeled[i].Ticker != labeled[j].Ticker {
			return labeled[i].Ticker < labeled[j].Ticker
		}
		return labeled[i].CollectedAt.Before(labeled[j].CollectedAt)
	})

	// Tickers are contiguous after sorting; resolve each group in turn.
	for start := 0; start < len(labeled); {
		end := start
		for end < len(labeled) && labeled[end].Ticker == labeled[start].Ticker {
			end++
		}
		l.fillForwardGroup(labeled[start:end], horizonDays)
		start = end
	}

	return labeled
}

// fillForwardGroup resolves forward prices inside one ticker's
// date-sorted rows.
func (l *Labeler) fillForwardGroup(group []contracts.LabeledRow, horizonDays int) {
	for i := range group {
		row := &group[i]
		target := row.CollectedAt.AddDate(0, 0, horizonDays)

		// First row at or after the target date.
		j := sort.Search(len(group), func(k int) bool {
			return !group[k].CollectedAt.Before(target)
		})
		if j == len(group) {
			continue // no future row within the dataset
		}

		row.ForwardPrice = group[j].Price
		if row.Price > 0 {
			row.ForwardReturn = (row.ForwardPrice - row.Price) / row.Price
		}
	}
}

// LabelForwardPerformance computes forward returns at the horizon and
// assigns labels per collection-date cross-section: 0 for returns at or
// below the qLower quantile, 1 for returns at or above the qUpper
// quantile, undefined in between. Thresholds are relative to same-day
// peers only, never to all history.
func (l *Labeler) LabelForwardPerformance(rows []contracts.IndicatorRow, horizonDays int, qLower, qUpper float64) []contracts.LabeledRow {
	labeled := l.ForwardPrices(rows, horizonDays)

	// Group row indices by collection date, keeping only valid returns.
	crossSections := make(map[string][]int)
	for i := range labeled {
		if math.IsNaN(labeled[i].ForwardReturn) {
			continue
		}
		key := labeled[i].DateKey()
		crossSections[key] = append(crossSections[key], i)
	}

	var labeledDays, skippedSmall, skippedDegenerate int
	for key, idx := range crossSections {
		if len(idx) < minCrossSection {
			skippedSmall++
			l.log.Debug().
				Str("date", key).
				Int("observations", len(idx)).
				Msg("cross-section too small for quantiles, skipping day")
			continue
		}

		returns := make([]float64, len(idx))
		for k, i := range idx {
			returns[k] = labeled[i].ForwardReturn
		}
		sort.Float64s(returns)

		lower := quantileLinear(returns, qLower)
		upper := quantileLinear(returns, qUpper)

		// A day where both thresholds coincide (heavily tied returns)
		// would put every row in one class; skip it instead.
		if lower == upper {
			skippedDegenerate++
			l.log.Debug().
				Err(contracts.ErrDegenerateQuantiles).
				Str("date", key).
				Float64("quantile", lower).
				Msg("skipping day")
			continue
		}

		for _, i := range idx {
			switch {
			case labeled[i].ForwardReturn <= lower:
				labeled[i].Label = contracts.LabelUnderperform
			case labeled[i].ForwardReturn >= upper:
				labeled[i].Label = contracts.LabelOutperform
			}
		}
		labeledDays++
	}

	l.log.Info().
		Int("rows", len(labeled)).
		Int("horizon_days", horizonDays).
		Int("labeled_days", labeledDays).
		Int("days_too_small", skippedSmall).
		Int("days_degenerate", skippedDegenerate).
		Msg("forward performance labeling completed")

	return labeled
}

// quantileLinear interpolates the p-quantile of sorted values at the
// fractional index p*(n-1). gonum's stat.Quantile interpolates the
// empirical CDF instead, which snaps 0.75 of a 4-point day onto an
// observed value and would label both of the top two rows.
func quantileLinear(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// HorizonDate returns the calendar date a horizon resolves to, used when
// presenting forecasts.
func HorizonDate(from time.Time, horizonDays int) time.Time {
	return from.AddDate(0, 0, horizonDays)
}
