package contracts

import "errors"

// Error taxonomy for the pipeline. Callers decide whether a condition
// aborts the run; the core only classifies.
var (
	// ErrDataUnavailable signals that the store returned zero rows or the
	// required columns are absent. Non-fatal; the caller decides.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientSamples signals fewer rows than the minimum needed for
	// a quantile computation or a meaningful train/test split. The affected
	// unit is skipped, never silently fabricated.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrDegenerateQuantiles signals that the lower and upper quantile of a
	// day's cross-section coincide; labeling for that day is skipped.
	ErrDegenerateQuantiles = errors.New("degenerate quantiles")

	// ErrPersistence signals that a model or imputer failed to save. A
	// training run without a persisted artifact is useless, so this is a
	// hard failure, but it never corrupts a previously valid artifact.
	ErrPersistence = errors.New("model persistence failed")
)
