package training

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MateusRestier/insight-invest/internal/contracts"
)

// SplitChronological partitions a date-sorted dataset into train and
// holdout index sets. The cutoff is the holdoutFrac-from-the-end
// quantile of the observation dates; everything dated at or before the
// cutoff trains, everything after is held out. Rows sharing the cutoff
// date always land together, so the holdout can only start at a day
// boundary and never sees a day the model trained on.
func SplitChronological(ds *contracts.Dataset, holdoutFrac float64) (train, holdout []int, cutoff time.Time, err error) {
	n := ds.Len()
	if n < 2 {
		return nil, nil, time.Time{}, fmt.Errorf("%d samples: %w", n, contracts.ErrInsufficientSamples)
	}

	unix := make([]float64, n)
	for i, d := range ds.Dates {
		unix[i] = float64(d.Unix())
	}
	sorted := append([]float64(nil), unix...)
	sort.Float64s(sorted)

	cut := stat.Quantile(1-holdoutFrac, stat.LinInterp, sorted, nil)
	cutoff = time.Unix(int64(cut), 0).UTC()

	for i := range unix {
		if unix[i] <= cut {
			train = append(train, i)
		} else {
			holdout = append(holdout, i)
		}
	}
	if len(train) == 0 || len(holdout) == 0 {
		return nil, nil, time.Time{}, fmt.Errorf("degenerate chronological split (train=%d holdout=%d): %w",
			len(train), len(holdout), contracts.ErrInsufficientSamples)
	}
	return train, holdout, cutoff, nil
}

// SplitByCutoff partitions by an explicit date: rows dated at or before
// the cutoff train, later rows are held out. Either side may be empty.
func SplitByCutoff(ds *contracts.Dataset, cutoff time.Time) (train, holdout []int) {
	for i, d := range ds.Dates {
		if !d.After(cutoff) {
			train = append(train, i)
		} else {
			holdout = append(holdout, i)
		}
	}
	return train, holdout
}

// Fold is one forward-chaining cross-validation split. Train indices
// always precede test indices in dataset order.
type Fold struct {
	Train []int
	Test  []int
}

// TimeSeriesSplit produces k forward-chaining folds over n samples
// already sorted by date. Each fold tests on a block of n/(k+1) samples
// and trains on everything before that block, so later folds train on
// strictly more history. Fails when n is too small to give every fold a
// non-empty test block.
func TimeSeriesSplit(n, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	testSize := n / (k + 1)
	if testSize < 1 {
		return nil, fmt.Errorf("%d samples for %d folds: %w", n, k, contracts.ErrInsufficientSamples)
	}

	folds := make([]Fold, 0, k)
	for i := 0; i < k; i++ {
		testStart := n - (k-i)*testSize
		testEnd := testStart + testSize

		fold := Fold{
			Train: make([]int, testStart),
			Test:  make([]int, testSize),
		}
		for j := 0; j < testStart; j++ {
			fold.Train[j] = j
		}
		for j := testStart; j < testEnd; j++ {
			fold.Test[j-testStart] = j
		}
		folds = append(folds, fold)
	}
	return folds, nil
}
