package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MateusRestier/insight-invest/internal/contracts"
	"github.com/MateusRestier/insight-invest/internal/dataset"
	"github.com/MateusRestier/insight-invest/internal/features"
	"github.com/MateusRestier/insight-invest/internal/rforest"
	"github.com/MateusRestier/insight-invest/internal/training"
)

// Verdict is the human-facing reading of the outperform probability.
type Verdict string

const (
	VerdictStrongBuy   Verdict = "strong buy"
	VerdictBuy         Verdict = "buy"
	VerdictWeakBuy     Verdict = "weak buy"
	VerdictNeutral     Verdict = "neutral"
	VerdictAvoid       Verdict = "avoid"
	VerdictStrongAvoid Verdict = "strong avoid"
)

// verdictFor maps the positive-class probability onto the ladder.
func verdictFor(probYes float64) Verdict {
	switch {
	case probYes >= 0.75:
		return VerdictStrongBuy
	case probYes >= 0.60:
		return VerdictBuy
	case probYes >= 0.50:
		return VerdictWeakBuy
	case probYes >= 0.40:
		return VerdictNeutral
	case probYes >= 0.25:
		return VerdictAvoid
	default:
		return VerdictStrongAvoid
	}
}

// Recommendation is the classifier's view of one ticker today.
type Recommendation struct {
	Ticker      string
	CollectedAt string
	ProbYes     float64
	ProbNo      float64
	Verdict     Verdict
}

// Result tags a per-ticker outcome from a fan-out run.
type Result struct {
	Ticker string
	Rec    *Recommendation
	Err    error
}

// Recommender scores tickers with the persisted performance classifier.
type Recommender struct {
	source contracts.IndicatorSource
	store  contracts.ModelStore
	log    zerolog.Logger
	base   zerolog.Logger

	once     sync.Once
	loadErr  error
	forest   *rforest.Forest
	artifact *contracts.ModelArtifact
}

func NewRecommender(source contracts.IndicatorSource, store contracts.ModelStore, log zerolog.Logger) *Recommender {
	return &Recommender{
		source: source,
		store:  store,
		log:    log.With().Str("component", "recommend").Logger(),
		base:   log,
	}
}

// load fetches and decodes the classifier artifact once per
// Recommender; all workers share the read-only forest.
func (r *Recommender) load() error {
	r.once.Do(func() {
		artifact, err := r.store.Load(training.ClassifierModelName)
		if err != nil {
			r.loadErr = fmt.Errorf("load classifier: %w", err)
			return
		}
		if artifact.Kind != contracts.ModelClassifier {
			r.loadErr = fmt.Errorf("artifact %s is a %s, expected classifier",
				artifact.Name, artifact.Kind)
			return
		}
		forest, err := rforest.Unmarshal(artifact.Model)
		if err != nil {
			r.loadErr = fmt.Errorf("decode classifier: %w", err)
			return
		}
		r.artifact = artifact
		r.forest = forest
	})
	return r.loadErr
}

// Recommend scores a single ticker from its most recent indicator row.
func (r *Recommender) Recommend(ctx context.Context, ticker string) (*Recommendation, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	row, err := r.source.GetLatestByTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	features.NewBuilder(r.base).ApplyRow(row)

	x := dataset.Vector(row, r.artifact.FeatureNames)
	imputer := r.artifact.Imputer
	if imputer == nil {
		imputer = contracts.ZeroImputer(len(x))
	}
	imputer.Transform(x)

	proba := r.forest.PredictProba(x)
	rec := &Recommendation{
		Ticker:      row.Ticker,
		CollectedAt: row.DateKey(),
		ProbYes:     proba[1],
		ProbNo:      proba[0],
		Verdict:     verdictFor(proba[1]),
	}
	r.log.Debug().
		Str("ticker", rec.Ticker).
		Float64("prob_yes", rec.ProbYes).
		Str("verdict", string(rec.Verdict)).
		Msg("ticker scored")
	return rec, nil
}

// RecommendMany fans the tickers out over a bounded worker pool.
// Workers share no mutable state; each outcome comes back tagged with
// its ticker and a per-ticker failure never aborts the run. Results are
// ordered by ticker.
func (r *Recommender) RecommendMany(ctx context.Context, tickers []string, workers int) []Result {
	if err := r.load(); err != nil {
		results := make([]Result, len(tickers))
		for i, tk := range tickers {
			results[i] = Result{Ticker: tk, Err: err}
		}
		return results
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(tickers) {
		workers = len(tickers)
	}

	jobs := make(chan string)
	out := make(chan Result)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range jobs {
				rec, err := r.Recommend(ctx, tk)
				out <- Result{Ticker: tk, Rec: rec, Err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, tk := range tickers {
			select {
			case jobs <- tk:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result, 0, len(tickers))
	for res := range out {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	return results
}

// AllTickers lists every ticker the indicator source knows about.
func (r *Recommender) AllTickers(ctx context.Context) ([]string, error) {
	return r.source.GetTickers(ctx)
}
