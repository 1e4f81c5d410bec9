package indicators

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// Columns of the fundamental indicators table, in the order the scraper
// writes them. The repository scans all of them; NULL becomes NaN so that
// a missing ratio is never mistaken for zero.
var indicatorColumns = []string{
	"pl", "psr", "pvp", "dividend_yield", "payout",
	"margem_liquida", "margem_bruta", "margem_ebit", "margem_ebitda",
	"ev_ebitda", "ev_ebit", "p_ebitda", "p_ebit",
	"p_ativo", "p_cap_giro", "p_ativo_circ_liq",
	"vpa", "lpa", "giro_ativos",
	"roe", "roic", "roa",
	"div_liq_patrimonio", "div_liq_ebitda", "div_liq_ebit", "div_bruta_patrimonio",
	"patrimonio_ativos", "passivos_ativos", "liquidez_corrente",
	"variacao_12m",
}

// Repository reads fundamental indicator rows from PostgreSQL. It
// implements contracts.IndicatorSource.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new indicator repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAll retrieves every indicator row ordered by (ticker, collected_at).
// Returns contracts.ErrDataUnavailable when the table is empty.
func (r *Repository) GetAll(ctx context.Context) ([]contracts.IndicatorRow, error) {
	query := fmt.Sprintf(`
		SELECT acao, data_coleta, cotacao, %s
		FROM indicadores_fundamentalistas
		ORDER BY acao, data_coleta
	`, strings.Join(indicatorColumns, ", "))

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	var result []contracts.IndicatorRow
	for rows.Next() {
		row, err := scanIndicatorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan indicator row: %w", err)
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indicator rows: %w", err)
	}

	if len(result) == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	return result, nil
}

// GetTickers returns the distinct tickers present in the store.
func (r *Repository) GetTickers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT acao FROM indicadores_fundamentalistas ORDER BY acao`)
	if err != nil {
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickers: %w", err)
	}

	if len(tickers) == 0 {
		return nil, contracts.ErrDataUnavailable
	}
	return tickers, nil
}

// GetLatestByTicker returns the most recent row for a ticker, or
// contracts.ErrDataUnavailable when the ticker has no rows.
func (r *Repository) GetLatestByTicker(ctx context.Context, ticker string) (*contracts.IndicatorRow, error) {
	query := fmt.Sprintf(`
		SELECT acao, data_coleta, cotacao, %s
		FROM indicadores_fundamentalistas
		WHERE acao = $1
		ORDER BY data_coleta DESC
		LIMIT 1
	`, strings.Join(indicatorColumns, ", "))

	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query latest for %s: %w", ticker, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate latest for %s: %w", ticker, err)
		}
		return nil, fmt.Errorf("%s: %w", ticker, contracts.ErrDataUnavailable)
	}

	row, err := scanIndicatorRow(rows)
	if err != nil {
		return nil, fmt.Errorf("scan latest for %s: %w", ticker, err)
	}
	return row, nil
}

// scanIndicatorRow scans one result row into an IndicatorRow, mapping
// NULL columns to NaN.
func scanIndicatorRow(rows pgx.Rows) (*contracts.IndicatorRow, error) {
	var (
		ticker      string
		collectedAt time.Time
		price       *float64
		values      = make([]*float64, len(indicatorColumns))
	)

	dest := make([]any, 0, len(indicatorColumns)+3)
	dest = append(dest, &ticker, &collectedAt, &price)
	for i := range values {
		dest = append(dest, &values[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := &contracts.IndicatorRow{
		Ticker:      ticker,
		CollectedAt: collectedAt,
		Price:       nullToNaN(price),
		Indicators:  make(map[string]float64, len(indicatorColumns)),
	}
	for i, col := range indicatorColumns {
		row.Indicators[col] = nullToNaN(values[i])
	}
	return row, nil
}

func nullToNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
