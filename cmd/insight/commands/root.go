package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MateusRestier/insight-invest/internal/indicators"
	"github.com/MateusRestier/insight-invest/internal/modelstore"
	"github.com/MateusRestier/insight-invest/pkg/config"
	"github.com/MateusRestier/insight-invest/pkg/database"
	"github.com/MateusRestier/insight-invest/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "insight",
	Short: "Insight Invest - stock fundamentals ML pipeline",
	Long: `Insight Invest CLI

Fundamentals-driven models over the indicator store: Graham valuation
features, forward-performance labeling, classifier training, price
forecasting and buy/avoid recommendations.

Usage:
  go run ./cmd/insight [command]

Examples:
  go run ./cmd/insight train
  go run ./cmd/insight forecast --days 30 --tickers PETR4,VALE3
  go run ./cmd/insight recommend --all
  go run ./cmd/insight analyze --top 10`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// deps is the shared wiring every command starts from.
type deps struct {
	cfg  *config.Config
	log  *logger.Logger
	db   *database.DB
	repo *indicators.Repository
}

func initDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return &deps{
		cfg:  cfg,
		log:  log,
		db:   db,
		repo: indicators.NewRepository(db.Pool),
	}, nil
}

func (d *deps) close() {
	if d.db != nil {
		d.db.Close()
	}
}

func (d *deps) modelStore() (*modelstore.Store, error) {
	return modelstore.New(d.cfg.ModelDir, d.log.Zerolog())
}
