package features

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// grahamMultiplier is Graham's 22.5 = 15 (max P/E) * 1.5 (max P/B).
const grahamMultiplier = 22.5

// Builder derives valuation features from raw indicator rows using the
// strict policy: the intrinsic value is computed only where both inputs
// are strictly positive, everything else stays undefined. No computation
// failure escapes this package; a bad input degrades the specific output
// to NaN for that row.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder creates a new feature builder.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("component", "features.graham").Logger(),
	}
}

// GrahamValue returns sqrt(22.5 * eps * bvps) when both eps and bvps are
// strictly positive, NaN otherwise. Positivity is enforced before the
// multiply so a negative product never reaches the square root.
func GrahamValue(eps, bvps float64) float64 {
	if !(eps > 0) || !(bvps > 0) {
		return math.NaN()
	}
	return math.Sqrt(grahamMultiplier * eps * bvps)
}

// PriceToGraham returns price / grahamValue when the intrinsic value is
// defined and non-zero, NaN otherwise.
func PriceToGraham(price, grahamValue float64) float64 {
	if math.IsNaN(grahamValue) || grahamValue == 0 || math.IsNaN(price) {
		return math.NaN()
	}
	return price / grahamValue
}

// Apply computes vi_graham and preco_sobre_graham for every row, storing
// both as derived indicators. The input slice is returned for chaining;
// rows are mutated in place.
func (b *Builder) Apply(rows []contracts.IndicatorRow) []contracts.IndicatorRow {
	var defined int
	for i := range rows {
		row := &rows[i]

		vi := GrahamValue(row.EarningsPerShare(), row.BookValuePerShare())
		row.SetIndicator(contracts.FieldGrahamValue, vi)
		row.SetIndicator(contracts.FieldPriceToGraham, PriceToGraham(row.Price, vi))

		if !math.IsNaN(vi) {
			defined++
		}
	}

	b.log.Debug().
		Int("rows", len(rows)).
		Int("graham_defined", defined).
		Msg("valuation features computed")

	return rows
}

// ApplyRow computes the valuation features for a single row, used on the
// inference path where only the latest snapshot of one ticker is scored.
func (b *Builder) ApplyRow(row *contracts.IndicatorRow) {
	vi := GrahamValue(row.EarningsPerShare(), row.BookValuePerShare())
	row.SetIndicator(contracts.FieldGrahamValue, vi)
	row.SetIndicator(contracts.FieldPriceToGraham, PriceToGraham(row.Price, vi))
}
