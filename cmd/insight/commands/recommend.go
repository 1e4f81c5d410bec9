package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MateusRestier/insight-invest/internal/recommend"
)

// recommendCmd represents the recommend command
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Score tickers with the trained classifier",
	Long: `Scores tickers with the persisted performance classifier and
prints a buy/avoid verdict per ticker.

Flags:
  --ticker   score a single ticker
  --all      score every ticker in the store
  --workers  concurrent workers for --all

Example:
  go run ./cmd/insight recommend --ticker PETR4
  go run ./cmd/insight recommend --all --workers 8`,
	RunE: runRecommend,
}

var (
	recommendTicker  string
	recommendAll     bool
	recommendWorkers int
)

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringVar(&recommendTicker, "ticker", "", "single ticker to score")
	recommendCmd.Flags().BoolVar(&recommendAll, "all", false, "score every ticker")
	recommendCmd.Flags().IntVar(&recommendWorkers, "workers", 4, "concurrent workers for --all")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Insight Invest Recommender ===")

	if recommendTicker == "" && !recommendAll {
		return fmt.Errorf("either --ticker or --all is required")
	}

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.close()

	store, err := d.modelStore()
	if err != nil {
		return fmt.Errorf("init model store: %w", err)
	}

	rec := recommend.NewRecommender(d.repo, store, d.log.Zerolog())
	ctx := cmd.Context()

	if recommendTicker != "" {
		result, err := rec.Recommend(ctx, strings.ToUpper(strings.TrimSpace(recommendTicker)))
		if err != nil {
			return fmt.Errorf("recommend failed: %w", err)
		}
		printRecommendHeader()
		printRecommendation(result)
		fmt.Println()
		return nil
	}

	tickers, err := rec.AllTickers(ctx)
	if err != nil {
		return fmt.Errorf("list tickers: %w", err)
	}
	fmt.Printf("\n🚀 Scoring %d tickers with %d workers...\n\n", len(tickers), recommendWorkers)

	results := rec.RecommendMany(ctx, tickers, recommendWorkers)

	printRecommendHeader()
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		printRecommendation(res.Rec)
	}
	if failed > 0 {
		fmt.Printf("\n⚠️  %d ticker(s) could not be scored\n", failed)
	}
	fmt.Println()
	return nil
}

func printRecommendHeader() {
	fmt.Println("\n✅ Recommendations")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%-10s %-12s %-8s %-8s %s\n", "TICKER", "DATE", "P(YES)", "P(NO)", "VERDICT")
}

func printRecommendation(r *recommend.Recommendation) {
	fmt.Printf("%-10s %-12s %-8.4f %-8.4f %s\n",
		r.Ticker, r.CollectedAt, r.ProbYes, r.ProbNo, r.Verdict)
}
