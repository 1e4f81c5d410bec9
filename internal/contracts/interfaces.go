package contracts

import "context"

// IndicatorSource supplies raw per-(ticker, date) fundamental rows.
// The core only requires reads; writes belong to the scraper side.
type IndicatorSource interface {
	// GetAll returns every known row ordered by (ticker, collected_at).
	GetAll(ctx context.Context) ([]IndicatorRow, error)

	// GetTickers returns the distinct tickers present in the store.
	GetTickers(ctx context.Context) ([]string, error)

	// GetLatestByTicker returns the most recent row for a ticker.
	GetLatestByTicker(ctx context.Context, ticker string) (*IndicatorRow, error)
}

// ModelStore persists trained estimators keyed by model name. Artifacts
// are opaque blobs; no cross-system wire format is implied.
type ModelStore interface {
	// Save atomically publishes an artifact. A partially written artifact
	// is never visible under the final name.
	Save(artifact *ModelArtifact) error

	// Load returns the artifact saved under name, or ErrDataUnavailable.
	Load(name string) (*ModelArtifact, error)
}
