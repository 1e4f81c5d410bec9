package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// Every environment variable is read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// Database
	Database DatabaseConfig

	// Model artifacts
	ModelDir string

	// Training defaults
	Training TrainingConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// TrainingConfig holds default knobs for the training pipelines. Commands
// may override any of these with flags; core packages receive them as
// explicit arguments, never by reading the environment themselves.
type TrainingConfig struct {
	HorizonDays   int     // forward-return horizon for the classifier
	QuantileLower float64 // bottom cross-sectional quantile → label 0
	QuantileUpper float64 // top cross-sectional quantile → label 1
	HoldoutFrac   float64 // most recent fraction of dates held out
	CVSplits      int     // forward-chaining cross-validation folds
	SearchIters   int     // random-search draws during tuning
	Seed          int64   // reproducible sampling
}

// Load reads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		ModelDir: getEnv("MODEL_DIR", "modelo"),

		Training: TrainingConfig{
			HorizonDays:   getEnvAsInt("TRAIN_HORIZON_DAYS", 10),
			QuantileLower: getEnvAsFloat("TRAIN_QUANTILE_LOWER", 0.25),
			QuantileUpper: getEnvAsFloat("TRAIN_QUANTILE_UPPER", 0.75),
			HoldoutFrac:   getEnvAsFloat("TRAIN_HOLDOUT_FRAC", 0.20),
			CVSplits:      getEnvAsInt("TRAIN_CV_SPLITS", 5),
			SearchIters:   getEnvAsInt("TRAIN_SEARCH_ITERS", 20),
			Seed:          int64(getEnvAsInt("TRAIN_SEED", 42)),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	t := c.Training
	if t.QuantileLower <= 0 || t.QuantileUpper >= 1 || t.QuantileLower >= t.QuantileUpper {
		return fmt.Errorf("quantile bounds must satisfy 0 < lower < upper < 1")
	}
	if t.HoldoutFrac <= 0 || t.HoldoutFrac >= 1 {
		return fmt.Errorf("TRAIN_HOLDOUT_FRAC must be in (0, 1)")
	}
	if t.HorizonDays < 1 {
		return fmt.Errorf("TRAIN_HORIZON_DAYS must be >= 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
