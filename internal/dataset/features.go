package dataset

import "github.com/MateusRestier/insight-invest/internal/contracts"

// FeatureList is an explicit, ordered set of feature columns for a model.
// It is passed into dataset-building calls rather than shared as a global
// so different horizons and models can use different sets without
// cross-talk.
type FeatureList []string

// DefaultFeatures returns the canonical feature set for the performance
// models: the fundamental ratio columns plus the derived price-to-Graham
// feature.
func DefaultFeatures() FeatureList {
	return FeatureList{
		"pl", "pvp", "dividend_yield", "payout",
		"margem_liquida", "margem_bruta", "margem_ebit", "margem_ebitda",
		"ev_ebit", "p_ebit",
		"p_ativo", "p_cap_giro", "p_ativo_circ_liq",
		"vpa", "lpa",
		"giro_ativos", "roe", "roic", "roa",
		"patrimonio_ativos", "passivos_ativos",
		"variacao_12m",
		contracts.FieldPriceToGraham,
	}
}

// Contains reports whether the list includes the named feature.
func (f FeatureList) Contains(name string) bool {
	for _, n := range f {
		if n == name {
			return true
		}
	}
	return false
}
