package rforest

import (
	"math"
	"strconv"
)

// Kind distinguishes classification forests from regression forests.
type Kind string

const (
	Classification Kind = "classification"
	Regression     Kind = "regression"
)

// Config holds the forest hyperparameters. The zero-ish defaults mirror
// the knobs the tuning search explores: ensemble size, depth, leaf size,
// feature sampling and class balancing.
type Config struct {
	NEstimators    int    `json:"n_estimators"`
	MaxDepth       int    `json:"max_depth"` // 0 = unbounded
	MinSamplesLeaf int    `json:"min_samples_leaf"`
	MaxFeatures    string `json:"max_features"` // "sqrt", "log2", or a fraction like "0.5"
	Balanced       bool   `json:"balanced"`     // class-balanced sample weights (classifier only)
	Seed           int64  `json:"seed"`
}

// DefaultConfig returns a sensible untuned configuration.
func DefaultConfig() Config {
	return Config{
		NEstimators:    100,
		MaxDepth:       0,
		MinSamplesLeaf: 1,
		MaxFeatures:    "sqrt",
		Seed:           42,
	}
}

// featuresPerSplit resolves MaxFeatures against the feature count.
func (c Config) featuresPerSplit(nFeatures int) int {
	if nFeatures <= 1 {
		return nFeatures
	}

	var k int
	switch c.MaxFeatures {
	case "", "all":
		k = nFeatures
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		frac, err := strconv.ParseFloat(c.MaxFeatures, 64)
		if err != nil || frac <= 0 || frac > 1 {
			k = nFeatures
		} else {
			k = int(frac * float64(nFeatures))
		}
	}

	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}
