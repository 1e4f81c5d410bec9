package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MateusRestier/insight-invest/internal/forecasting"
	"github.com/MateusRestier/insight-invest/internal/rforest"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Multi-horizon price forecast",
	Long: `Forecasts the price of each ticker at every horizon 1..N days.

One regressor is trained per horizon on data collected at or before the
calculation date, then applied to each ticker's most recent row.

Flags:
  --days     number of horizons (required)
  --date     calculation date (YYYY-MM-DD, default: today)
  --tickers  comma-separated tickers (default: all)

Example:
  go run ./cmd/insight forecast --days 30
  go run ./cmd/insight forecast --days 15 --date 2025-06-30 --tickers PETR4,VALE3`,
	RunE: runForecast,
}

var (
	forecastDays    int
	forecastDate    string
	forecastTickers string
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().IntVar(&forecastDays, "days", 0, "number of horizons (required)")
	forecastCmd.Flags().StringVar(&forecastDate, "date", "", "calculation date (YYYY-MM-DD, default: today)")
	forecastCmd.Flags().StringVar(&forecastTickers, "tickers", "", "comma-separated tickers (default: all)")

	forecastCmd.MarkFlagRequired("days")
}

// defaultCalcDate maps the wall clock onto the user's calendar date at
// UTC midnight, the same form --date parses to. Truncating the instant
// against the UTC epoch would shift the date for anyone not on UTC.
func defaultCalcDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func runForecast(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Insight Invest Forecaster ===")

	calcDate := defaultCalcDate(time.Now())
	if forecastDate != "" {
		var err error
		calcDate, err = time.Parse("2006-01-02", forecastDate)
		if err != nil {
			return fmt.Errorf("invalid calculation date: %w", err)
		}
	}

	var tickers []string
	if forecastTickers != "" {
		for _, t := range strings.Split(forecastTickers, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, strings.ToUpper(t))
			}
		}
	}

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.close()

	fmt.Printf("\n📅 Calculation date: %s  |  Horizons: 1..%d\n\n",
		calcDate.Format("2006-01-02"), forecastDays)

	f := forecasting.New(d.repo, rforest.DefaultConfig(), d.log.Zerolog())
	rows, err := f.ForecastMultiHorizon(cmd.Context(), forecastDays, calcDate, tickers,
		func(done, total int) {
			fmt.Printf("\r🚀 Horizon %d/%d", done, total)
		})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}

	fmt.Println("\n✅ Forecast Completed")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%-10s %-8s %-12s %s\n", "TICKER", "HORIZON", "DATE", "PRICE")
	for _, r := range rows {
		fmt.Printf("%-10s %-8d %-12s %.2f\n",
			r.Ticker, r.Horizon, r.ForecastDate.Format("2006-01-02"), r.PredictedPrice)
	}
	fmt.Println()
	return nil
}
