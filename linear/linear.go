// Package linear implements the peer linear-model trainer the distilled
// spec treats as an external collaborator "behind a uniform interface"
// (§1): ridge-regularized linear regression for Regression, and
// gradient-descent logistic/softmax regression for the two classification
// tasks. It shares gbt.Task so the grid orchestrator can dispatch on one
// enum across both model families.
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wlattner/gbt/gbt"
)

// TrainOptions configures both the ridge closed-form solve (Regression) and
// the gradient-descent solves (the two classification tasks).
type TrainOptions struct {
	L2Regularization float64
	LearningRate     float64
	MaxIterations    int
}

// DefaultTrainOptions matches the grid orchestrator's linear-item fallback.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		L2Regularization: 1.0,
		LearningRate:     0.1,
		MaxIterations:    200,
	}
}

// Model is a linear (regression) or softmax-linear (classification)
// predictor: one weight vector per output dimension plus a bias per
// dimension, mirroring gbt.Ensemble's Bias/OutputDim shape so the two
// model families present the same surface to package model/predict.
type Model struct {
	Task         gbt.Task
	NClasses     int
	Bias         []float64
	Weights      [][]float64 // Weights[k] has len nFeatures, one row per output dim
	FeatureGain  []float64   // |weight| share per feature, the linear analogue of tree importances
}

// OutputDim is 1 for regression/binary, NClasses for multiclass.
func (m *Model) OutputDim() int {
	if m.Task == gbt.MulticlassClassification {
		return m.NClasses
	}
	return 1
}

// PredictLogits returns the raw linear output (pre-sigmoid/softmax) for one
// row of features.
func (m *Model) PredictLogits(x []float64) []float64 {
	out := make([]float64, len(m.Bias))
	for k := range out {
		v := m.Bias[k]
		w := m.Weights[k]
		for f, xv := range x {
			v += w[f] * xv
		}
		out[k] = v
	}
	return out
}

// FitRegressor solves ridge regression (X^T X + lambda I) w = X^T y via
// gonum's dense solver.
func FitRegressor(x [][]float64, y []float64, opt TrainOptions) *Model {
	n := len(x)
	if n == 0 {
		return &Model{Task: gbt.Regression, Bias: []float64{0}, Weights: [][]float64{{}}}
	}
	nFeatures := len(x[0])

	mean := make([]float64, nFeatures)
	for _, row := range x {
		for f, v := range row {
			mean[f] += v
		}
	}
	for f := range mean {
		mean[f] /= float64(n)
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	xc := mat.NewDense(n, nFeatures, nil)
	for i, row := range x {
		for f, v := range row {
			xc.Set(i, f, v-mean[f])
		}
	}
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	var xtx mat.Dense
	xtx.Mul(xc.T(), xc)
	for f := 0; f < nFeatures; f++ {
		xtx.Set(f, f, xtx.At(f, f)+opt.L2Regularization)
	}

	var xty mat.VecDense
	xty.MulVec(xc.T(), yc)

	var w mat.VecDense
	if err := w.SolveVec(&xtx, &xty); err != nil {
		// singular normal equations (e.g. a constant column): fall back to
		// the zero-weight, mean-only predictor rather than propagating a
		// numerical failure into the grid orchestrator.
		weights := make([]float64, nFeatures)
		gain := make([]float64, nFeatures)
		return &Model{Task: gbt.Regression, Bias: []float64{yMean}, Weights: [][]float64{weights}, FeatureGain: gain}
	}

	weights := make([]float64, nFeatures)
	var bias float64 = yMean
	for f := 0; f < nFeatures; f++ {
		weights[f] = w.AtVec(f)
		bias -= weights[f] * mean[f]
	}

	return &Model{
		Task:        gbt.Regression,
		Bias:        []float64{bias},
		Weights:     [][]float64{weights},
		FeatureGain: featureGain(weights),
	}
}

// FitBinaryClassifier fits logistic regression by batch gradient descent.
func FitBinaryClassifier(x [][]float64, y []float64, opt TrainOptions) *Model {
	n := len(x)
	nFeatures := 0
	if n > 0 {
		nFeatures = len(x[0])
	}

	weights := make([]float64, nFeatures)
	var bias float64

	lr := opt.LearningRate
	if lr <= 0 {
		lr = 0.1
	}
	iters := opt.MaxIterations
	if iters <= 0 {
		iters = 200
	}

	for it := 0; it < iters; it++ {
		gradW := make([]float64, nFeatures)
		var gradB float64
		for i, row := range x {
			logit := bias
			for f, v := range row {
				logit += weights[f] * v
			}
			p := 1 / (1 + math.Exp(-logit))
			err := p - y[i]
			for f, v := range row {
				gradW[f] += err * v
			}
			gradB += err
		}
		for f := range weights {
			weights[f] -= lr * (gradW[f]/float64(n) + opt.L2Regularization*weights[f]/float64(n))
		}
		bias -= lr * gradB / float64(n)
	}

	return &Model{
		Task:        gbt.BinaryClassification,
		Bias:        []float64{bias},
		Weights:     [][]float64{weights},
		FeatureGain: featureGain(weights),
	}
}

// FitMulticlassClassifier fits softmax regression by batch gradient
// descent, one weight row per class.
func FitMulticlassClassifier(x [][]float64, y []int, nClasses int, opt TrainOptions) *Model {
	n := len(x)
	nFeatures := 0
	if n > 0 {
		nFeatures = len(x[0])
	}

	weights := make([][]float64, nClasses)
	bias := make([]float64, nClasses)
	for k := range weights {
		weights[k] = make([]float64, nFeatures)
	}

	lr := opt.LearningRate
	if lr <= 0 {
		lr = 0.1
	}
	iters := opt.MaxIterations
	if iters <= 0 {
		iters = 200
	}

	for it := 0; it < iters; it++ {
		gradW := make([][]float64, nClasses)
		gradB := make([]float64, nClasses)
		for k := range gradW {
			gradW[k] = make([]float64, nFeatures)
		}

		for i, row := range x {
			logits := make([]float64, nClasses)
			for k := 0; k < nClasses; k++ {
				v := bias[k]
				for f, xv := range row {
					v += weights[k][f] * xv
				}
				logits[k] = v
			}
			p := softmax(logits)
			for k := 0; k < nClasses; k++ {
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				err := p[k] - target
				for f, xv := range row {
					gradW[k][f] += err * xv
				}
				gradB[k] += err
			}
		}

		for k := 0; k < nClasses; k++ {
			for f := range weights[k] {
				weights[k][f] -= lr * (gradW[k][f]/float64(n) + opt.L2Regularization*weights[k][f]/float64(n))
			}
			bias[k] -= lr * gradB[k] / float64(n)
		}
	}

	gain := make([]float64, nFeatures)
	for k := range weights {
		for f, w := range weights[k] {
			gain[f] += math.Abs(w)
		}
	}
	normalizeGain(gain)

	return &Model{
		Task:        gbt.MulticlassClassification,
		NClasses:    nClasses,
		Bias:        bias,
		Weights:     weights,
		FeatureGain: gain,
	}
}

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func featureGain(weights []float64) []float64 {
	gain := make([]float64, len(weights))
	for f, w := range weights {
		gain[f] = math.Abs(w)
	}
	normalizeGain(gain)
	return gain
}

func normalizeGain(gain []float64) {
	var total float64
	for _, g := range gain {
		total += g
	}
	if total <= 0 {
		return
	}
	for i := range gain {
		gain[i] /= total
	}
}
