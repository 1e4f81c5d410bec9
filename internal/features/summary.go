package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// TickerRatio pairs a ticker's most recent price-to-Graham ratio with the
// inputs behind it, for the analysis report.
type TickerRatio struct {
	Ticker        string
	DateKey       string
	PriceToGraham float64
	Price         float64
	GrahamValue   float64
}

// GrahamSummary describes the distribution of preco_sobre_graham across
// the dataset plus the cheapest/richest tickers by their latest ratio.
type GrahamSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64

	Cheapest []TickerRatio // lowest ratio first
	Richest  []TickerRatio // highest ratio first
}

// DescribeGraham summarises the price-to-Graham feature over all rows.
// Rows with an undefined or infinite ratio are ignored. topN bounds the
// cheapest/richest lists. Returns nil when no row has a defined ratio.
func DescribeGraham(rows []contracts.IndicatorRow, topN int) *GrahamSummary {
	var ratios []float64
	latest := make(map[string]TickerRatio)

	for i := range rows {
		row := &rows[i]
		psg := row.Indicator(contracts.FieldPriceToGraham)
		if math.IsNaN(psg) || math.IsInf(psg, 0) {
			continue
		}
		ratios = append(ratios, psg)

		// Keep the most recent defined ratio per ticker.
		cur, ok := latest[row.Ticker]
		if !ok || row.DateKey() > cur.DateKey {
			latest[row.Ticker] = TickerRatio{
				Ticker:        row.Ticker,
				DateKey:       row.DateKey(),
				PriceToGraham: psg,
				Price:         row.Price,
				GrahamValue:   row.Indicator(contracts.FieldGrahamValue),
			}
		}
	}

	if len(ratios) == 0 {
		return nil
	}

	sorted := append([]float64(nil), ratios...)
	sort.Float64s(sorted)

	summary := &GrahamSummary{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.StdDev(sorted, nil),
		Min:    sorted[0],
		Q25:    stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		Q75:    stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}

	byRatio := make([]TickerRatio, 0, len(latest))
	for _, tr := range latest {
		byRatio = append(byRatio, tr)
	}
	sort.Slice(byRatio, func(i, j int) bool {
		if byRatio[i].PriceToGraham != byRatio[j].PriceToGraham {
			return byRatio[i].PriceToGraham < byRatio[j].PriceToGraham
		}
		return byRatio[i].Ticker < byRatio[j].Ticker
	})

	n := topN
	if n < 0 {
		n = 0
	}
	if n > len(byRatio) {
		n = len(byRatio)
	}
	summary.Cheapest = append([]TickerRatio(nil), byRatio[:n]...)

	richest := make([]TickerRatio, 0, n)
	for i := len(byRatio) - 1; i >= len(byRatio)-n; i-- {
		richest = append(richest, byRatio[i])
	}
	summary.Richest = richest

	return summary
}
