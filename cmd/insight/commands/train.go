package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MateusRestier/insight-invest/internal/training"
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the forward-performance classifier",
	Long: `Trains the outperform/underperform classifier end to end.

The pipeline loads the indicator store, derives the Graham valuation
features, labels forward performance against cross-sectional quantiles,
splits chronologically, tunes a random forest with forward-chaining
cross-validation and persists the winning model.

Flags:
  --horizon   forward-return horizon in days
  --holdout   most recent fraction of dates held out
  --iters     random-search draws

Example:
  go run ./cmd/insight train
  go run ./cmd/insight train --horizon 10 --holdout 0.2 --iters 20`,
	RunE: runTrain,
}

var (
	trainHorizon int
	trainHoldout float64
	trainIters   int
)

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().IntVar(&trainHorizon, "horizon", 0, "forward-return horizon in days (default from env)")
	trainCmd.Flags().Float64Var(&trainHoldout, "holdout", 0, "holdout fraction (default from env)")
	trainCmd.Flags().IntVar(&trainIters, "iters", 0, "random-search iterations (default from env)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Insight Invest Trainer ===")

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer d.close()

	tcfg := d.cfg.Training
	if trainHorizon > 0 {
		tcfg.HorizonDays = trainHorizon
	}
	if trainHoldout > 0 {
		tcfg.HoldoutFrac = trainHoldout
	}
	if trainIters > 0 {
		tcfg.SearchIters = trainIters
	}

	store, err := d.modelStore()
	if err != nil {
		return fmt.Errorf("init model store: %w", err)
	}

	fmt.Printf("\n📅 Horizon: %d days  |  Holdout: %.0f%%  |  Search: %d draws\n\n",
		tcfg.HorizonDays, tcfg.HoldoutFrac*100, tcfg.SearchIters)

	trainer := training.NewTrainer(d.repo, store, tcfg, d.log.Zerolog())
	report, err := trainer.RunClassifier(cmd.Context())
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	printTrainReport(report)
	return nil
}

func printTrainReport(r *training.ClassifierReport) {
	fmt.Println("\n✅ Training Completed")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Println("\n📊 Data")
	fmt.Printf("Samples: %d (train %d / holdout %d)\n", r.Samples, r.TrainSize, r.HoldoutSize)
	fmt.Printf("Cutoff:  %s\n", r.Cutoff.Format("2006-01-02"))

	fmt.Println("\n🔍 Best Configuration")
	c := r.Best.Config
	fmt.Printf("n_estimators=%d max_depth=%d min_samples_leaf=%d max_features=%s balanced=%v\n",
		c.NEstimators, c.MaxDepth, c.MinSamplesLeaf, c.MaxFeatures, c.Balanced)
	fmt.Printf("CV score (roc auc): %.4f\n", r.Best.Score)

	fmt.Println("\n📈 Holdout Metrics")
	fmt.Print(r.Metrics.String())

	fmt.Println("\n🔬 Holdout Comparison (first rows)")
	fmt.Printf("%-10s %-12s %-7s %-7s %s\n", "TICKER", "DATE", "ACTUAL", "PRED", "P(YES)")
	comp := r.Holdout
	if len(comp) > 8 {
		comp = comp[:8]
	}
	for _, p := range comp {
		fmt.Printf("%-10s %-12s %-7.0f %-7.0f %.4f\n",
			p.Ticker, p.Date.Format("2006-01-02"), p.Actual, p.Predicted, p.Score)
	}

	fmt.Println("\n⭐ Top Features")
	top := r.Importances
	if len(top) > 10 {
		top = top[:10]
	}
	for _, fi := range top {
		fmt.Printf("%-22s %.4f\n", fi.Name, fi.Score)
	}

	fmt.Printf("\n💾 Model saved as %q\n\n", r.Artifact.Name)
}
