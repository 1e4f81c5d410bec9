package training

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ClassReport holds per-class precision, recall and F1 for one label.
type ClassReport struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationMetrics is the holdout evaluation of a binary
// classifier. Confusion is indexed [actual][predicted].
type ClassificationMetrics struct {
	Accuracy      float64
	Confusion     [2][2]int
	Classes       [2]ClassReport
	AUC           float64
	AUCComputable bool
	AUCMessage    string
}

// EvaluateClassifier computes accuracy, confusion matrix, per-class
// report and ROC AUC from true labels, predicted labels and
// positive-class scores.
func EvaluateClassifier(yTrue, yPred, scores []float64) ClassificationMetrics {
	var m ClassificationMetrics

	correct := 0
	for i := range yTrue {
		a, p := int(yTrue[i]), int(yPred[i])
		m.Confusion[a][p]++
		if a == p {
			correct++
		}
	}
	if len(yTrue) > 0 {
		m.Accuracy = float64(correct) / float64(len(yTrue))
	}

	for c := 0; c < 2; c++ {
		tp := m.Confusion[c][c]
		predicted := m.Confusion[0][c] + m.Confusion[1][c]
		actual := m.Confusion[c][0] + m.Confusion[c][1]

		var r ClassReport
		r.Support = actual
		if predicted > 0 {
			r.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			r.Recall = float64(tp) / float64(actual)
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		m.Classes[c] = r
	}

	auc, err := RocAUC(yTrue, scores)
	if err != nil {
		m.AUCComputable = false
		m.AUCMessage = err.Error()
	} else {
		m.AUC = auc
		m.AUCComputable = true
	}
	return m
}

// RocAUC computes the area under the ROC curve via the rank statistic:
// the probability that a random positive scores above a random
// negative, with ties counted half. Errors when only one class is
// present, since the curve is undefined there.
func RocAUC(yTrue, scores []float64) (float64, error) {
	n := len(yTrue)
	type pair struct {
		score float64
		pos   bool
	}
	pairs := make([]pair, n)
	nPos, nNeg := 0, 0
	for i := 0; i < n; i++ {
		pairs[i] = pair{scores[i], yTrue[i] == 1}
		if yTrue[i] == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, fmt.Errorf("roc auc undefined: only one class present (%d positive, %d negative)", nPos, nNeg)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	// Sum of positive ranks, averaging ranks across score ties.
	rankSum := 0.0
	i := 0
	for i < n {
		j := i
		for j < n && pairs[j].score == pairs[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if pairs[k].pos {
				rankSum += avgRank
			}
		}
		i = j
	}

	auc := (rankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
	return auc, nil
}

// String renders the metrics in a compact report.
func (m ClassificationMetrics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "accuracy %.4f\n", m.Accuracy)
	if m.AUCComputable {
		fmt.Fprintf(&b, "roc auc  %.4f\n", m.AUC)
	} else {
		fmt.Fprintf(&b, "roc auc  n/a (%s)\n", m.AUCMessage)
	}
	fmt.Fprintf(&b, "confusion [actual x predicted]: [[%d %d] [%d %d]]\n",
		m.Confusion[0][0], m.Confusion[0][1], m.Confusion[1][0], m.Confusion[1][1])
	for c := 0; c < 2; c++ {
		r := m.Classes[c]
		fmt.Fprintf(&b, "class %d: precision %.4f recall %.4f f1 %.4f support %d\n",
			c, r.Precision, r.Recall, r.F1, r.Support)
	}
	return b.String()
}

// RegressionMetrics is the holdout evaluation of a price regressor.
type RegressionMetrics struct {
	MAE float64
	MSE float64
	R2  float64
}

// EvaluateRegressor computes MAE, MSE and R² of predictions against
// true values.
func EvaluateRegressor(yTrue, yPred []float64) RegressionMetrics {
	var m RegressionMetrics
	n := len(yTrue)
	if n == 0 {
		return m
	}

	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		if diff < 0 {
			m.MAE -= diff
		} else {
			m.MAE += diff
		}
		m.MSE += diff * diff
	}
	m.MAE /= float64(n)
	m.MSE /= float64(n)

	mean := stat.Mean(yTrue, nil)
	ssTot := 0.0
	for i := 0; i < n; i++ {
		d := yTrue[i] - mean
		ssTot += d * d
	}
	if ssTot > 0 {
		m.R2 = 1 - m.MSE*float64(n)/ssTot
	}
	return m
}

func (m RegressionMetrics) String() string {
	return fmt.Sprintf("mae %.4f  mse %.4f  r2 %.4f", m.MAE, m.MSE, m.R2)
}
