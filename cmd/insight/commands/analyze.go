package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MateusRestier/insight-invest/internal/features"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Graham valuation overview of the indicator store",
	Long: `Derives the Graham intrinsic value for every row in the store
and prints descriptive statistics of the price-to-Graham ratio, plus
the cheapest and richest tickers by their most recent ratio.

Example:
  go run ./cmd/insight analyze
  go run ./cmd/insight analyze --top 10`,
	RunE: runAnalyze,
}

var analyzeTop int

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 5, "size of the cheapest/richest lists")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Insight Invest Analyzer ===")

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.close()

	rows, err := d.repo.GetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("load indicators: %w", err)
	}
	features.NewBuilder(d.log.Zerolog()).Apply(rows)

	summary := features.DescribeGraham(rows, analyzeTop)
	if summary == nil {
		return fmt.Errorf("no row has a defined price-to-Graham ratio")
	}

	fmt.Println("\n📊 Price-to-Graham Ratio")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Count:   %d\n", summary.Count)
	fmt.Printf("Mean:    %.4f  (std %.4f)\n", summary.Mean, summary.StdDev)
	fmt.Printf("Min:     %.4f\n", summary.Min)
	fmt.Printf("Q25:     %.4f\n", summary.Q25)
	fmt.Printf("Median:  %.4f\n", summary.Median)
	fmt.Printf("Q75:     %.4f\n", summary.Q75)
	fmt.Printf("Max:     %.4f\n", summary.Max)

	fmt.Printf("\n💎 Cheapest (price below Graham value)\n")
	printRatios(summary.Cheapest)
	fmt.Printf("\n🔥 Richest (price above Graham value)\n")
	printRatios(summary.Richest)
	fmt.Println()
	return nil
}

func printRatios(list []features.TickerRatio) {
	fmt.Printf("%-10s %-12s %-10s %-10s %s\n", "TICKER", "DATE", "RATIO", "PRICE", "GRAHAM")
	for _, r := range list {
		fmt.Printf("%-10s %-12s %-10.4f %-10.2f %.2f\n",
			r.Ticker, r.DateKey, r.PriceToGraham, r.Price, r.GrahamValue)
	}
}
