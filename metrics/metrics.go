// Package metrics implements the evaluation accumulators the grid
// orchestrator uses to score a trained model against held-out data:
// regression error statistics, binary-classification accuracy/AUC-ROC, and
// multiclass accuracy.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Regression holds the standard error statistics computed from aligned
// prediction/label slices.
type Regression struct {
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
}

// ComputeRegression scores predictions against labels.
func ComputeRegression(predictions, labels []float64) Regression {
	n := len(labels)
	if n == 0 {
		return Regression{}
	}

	var sqErr, absErr float64
	for i := range labels {
		d := predictions[i] - labels[i]
		sqErr += d * d
		if d < 0 {
			d = -d
		}
		absErr += d
	}
	mse := sqErr / float64(n)

	mean := stat.Mean(labels, nil)
	var ssTot float64
	for _, y := range labels {
		d := y - mean
		ssTot += d * d
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sqErr/ssTot
	}

	return Regression{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAE:  absErr / float64(n),
		R2:   r2,
	}
}

// BinaryClassification holds accuracy at the model's default 0.5 threshold,
// AUC-ROC, and a threshold sweep report for the caller to pick an operating
// point from.
type BinaryClassification struct {
	Accuracy  float64
	AUC       float64
	Threshold []ThresholdPoint
}

// ThresholdPoint is one entry of the threshold sweep: the counts of true
// and false positives and negatives at that cutoff.
type ThresholdPoint struct {
	Threshold   float64
	TruePositive  int
	FalsePositive int
	TrueNegative  int
	FalseNegative int
}

// ComputeBinaryClassification scores predicted positive-class probabilities
// against 0/1 labels.
func ComputeBinaryClassification(probabilities, labels []float64) BinaryClassification {
	n := len(labels)
	var correct int
	for i := range labels {
		pred := 0.0
		if probabilities[i] >= 0.5 {
			pred = 1.0
		}
		if pred == labels[i] {
			correct++
		}
	}
	acc := 0.0
	if n > 0 {
		acc = float64(correct) / float64(n)
	}

	return BinaryClassification{
		Accuracy:  acc,
		AUC:       auc(probabilities, labels),
		Threshold: thresholdSweep(probabilities, labels),
	}
}

// auc computes the area under the ROC curve via the Mann-Whitney U
// statistic (rank-sum of positive-class scores), equivalent to trapezoidal
// ROC integration without needing an explicit cutpoint sweep.
func auc(scores, labels []float64) float64 {
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{scores[i], labels[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	var nPos, nNeg float64
	for _, l := range labels {
		if l > 0.5 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}

	// average ranks across ties, 1-indexed
	ranks := make([]float64, len(pairs))
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2.0 // (i+1 + j)/2 using 1-indexing
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	var sumPosRanks float64
	for i, p := range pairs {
		if p.label > 0.5 {
			sumPosRanks += ranks[i]
		}
	}

	u := sumPosRanks - nPos*(nPos+1)/2
	return u / (nPos * nNeg)
}

func thresholdSweep(probabilities, labels []float64) []ThresholdPoint {
	cutoffs := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	points := make([]ThresholdPoint, len(cutoffs))
	for i, c := range cutoffs {
		var tp, fp, tn, fn int
		for j, p := range probabilities {
			pred := p >= c
			actual := labels[j] > 0.5
			switch {
			case pred && actual:
				tp++
			case pred && !actual:
				fp++
			case !pred && actual:
				fn++
			default:
				tn++
			}
		}
		points[i] = ThresholdPoint{Threshold: c, TruePositive: tp, FalsePositive: fp, TrueNegative: tn, FalseNegative: fn}
	}
	return points
}

// Multiclass holds overall accuracy for a multiclass classifier.
type Multiclass struct {
	Accuracy float64
}

// ComputeMulticlass scores predicted class indices against true class
// indices.
func ComputeMulticlass(predictions, labels []int) Multiclass {
	n := len(labels)
	if n == 0 {
		return Multiclass{}
	}
	var correct int
	for i := range labels {
		if predictions[i] == labels[i] {
			correct++
		}
	}
	return Multiclass{Accuracy: float64(correct) / float64(n)}
}
