package gbt

import (
	"math"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/internal/report"
)

// Task is the kind of supervised problem an Ensemble was trained for.
type Task int

const (
	Regression Task = iota
	BinaryClassification
	MulticlassClassification
)

// EnsembleTrainOptions configures the outer boosting loop (§4.6).
type EnsembleTrainOptions struct {
	Tree                                  TrainOptions
	MaxRounds                             int
	ComputeLosses                         bool
	EarlyStoppingFraction                 float64 // > 0 (with ComputeLosses) enables early stopping, judged on the training loss over all rows; no rows are held aside
	NRoundsWithoutImprovementToStop       int
	MinDecreaseInLossForSignificantChange float64
}

// DefaultEnsembleTrainOptions matches the grid orchestrator's fallback
// hyperparameters.
func DefaultEnsembleTrainOptions() EnsembleTrainOptions {
	return EnsembleTrainOptions{
		Tree:                                  DefaultTrainOptions(),
		MaxRounds:                             100,
		ComputeLosses:                         true,
		NRoundsWithoutImprovementToStop:       5,
		MinDecreaseInLossForSignificantChange: 1e-4,
	}
}

// Ensemble is an ordered list of trees, one per round for regression/binary,
// NClasses per round for multiclass, plus the initial bias.
type Ensemble struct {
	Task               Task
	NClasses           int // meaningful only for MulticlassClassification
	Bias               []float32
	Rounds             [][]*Node
	LearningRate       float64
	FeatureImportances []float64
	TrainLosses        []float64
}

// OutputDim is 1 for regression/binary, NClasses for multiclass.
func (e *Ensemble) OutputDim() int {
	if e.Task == MulticlassClassification {
		return e.NClasses
	}
	return 1
}

// PredictLogits returns the raw (pre-sigmoid/softmax) ensemble output for
// one row.
func (e *Ensemble) PredictLogits(binOf func(feature int) int) []float32 {
	out := make([]float32, len(e.Bias))
	copy(out, e.Bias)
	for _, round := range e.Rounds {
		for k, tree := range round {
			out[k] += tree.Predict(binOf)
		}
	}
	return out
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softmax(logits []float32) []float64 {
	max := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > max {
			max = float64(v)
		}
	}
	exp := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		exp[i] = math.Exp(float64(v) - max)
		sum += exp[i]
	}
	for i := range exp {
		exp[i] /= sum
	}
	return exp
}

// roundState threads the shared bookkeeping (importances, losses, early
// stopping counters) through the three task-specific Fit* functions; each
// Fit* runs its own round loop (kill-chip check, tree training, prediction
// update), and the importance accumulation, loss recording and
// early-stopping decision are written once, in recordRound.
type roundState struct {
	importances         []float64
	losses              []float64
	roundsSinceImproved int
	bestLoss            float64
}

func newRoundState(nFeatures int) *roundState {
	return &roundState{importances: make([]float64, nFeatures), bestLoss: math.Inf(1)}
}

func (rs *roundState) recordRound(gain FeatureGain, loss float64, opt EnsembleTrainOptions) (stop bool) {
	for i, g := range gain {
		rs.importances[i] += g
	}
	if !opt.ComputeLosses {
		return false
	}
	rs.losses = append(rs.losses, loss)
	if opt.EarlyStoppingFraction <= 0 {
		return false
	}
	if rs.bestLoss-loss >= opt.MinDecreaseInLossForSignificantChange {
		rs.bestLoss = loss
		rs.roundsSinceImproved = 0
	} else {
		rs.roundsSinceImproved++
	}
	return rs.roundsSinceImproved > opt.NRoundsWithoutImprovementToStop
}

func (rs *roundState) finalize(e *Ensemble) {
	e.FeatureImportances = rs.importances
	normalize(e.FeatureImportances)
	e.TrainLosses = rs.losses
}

// FitRegressor trains a squared-error GBDT ensemble. y is aligned with
// matrix rows.
func FitRegressor(matrix bin.Matrix, instructions []bin.Instruction, y []float32, opt EnsembleTrainOptions, kill *killchip.Chip, rep report.Reporter) *Ensemble {
	n := matrix.NRows()
	mean := float32(0)
	for _, v := range y {
		mean += v
	}
	if n > 0 {
		mean /= float32(n)
	}

	e := &Ensemble{Task: Regression, Bias: []float32{mean}, LearningRate: opt.Tree.LearningRate}
	rs := newRoundState(matrix.NFeatures())

	preds := make([]float32, n)
	for i := range preds {
		preds[i] = mean
	}

	gradients := make([]float32, n)
	hessians := make([]float32, n) // unused (constant hessian)

	rep.Begin("gbdt regression rounds", opt.MaxRounds)
	for round := 0; round < opt.MaxRounds; round++ {
		if kill.IsTripped() {
			break
		}
		for i := range gradients {
			gradients[i] = preds[i] - y[i]
		}

		tree, gain := Fit(matrix, instructions, gradients, hessians, true, opt.Tree, kill)
		e.Rounds = append(e.Rounds, []*Node{tree})

		for i := 0; i < n; i++ {
			preds[i] += tree.Predict(rowBinOf(matrix, i))
		}

		loss := mse(preds, y)
		if rs.recordRound(gain, loss, opt) {
			rep.Info("early stopping: no significant decrease in loss")
			rep.Advance(1)
			break
		}
		rep.Advance(1)
	}
	rep.End()

	rs.finalize(e)
	return e
}

// FitBinaryClassifier trains a logistic-loss GBDT ensemble. y is 0/1 aligned
// with matrix rows.
func FitBinaryClassifier(matrix bin.Matrix, instructions []bin.Instruction, y []float32, opt EnsembleTrainOptions, kill *killchip.Chip, rep report.Reporter) *Ensemble {
	n := matrix.NRows()
	posRate := float32(0)
	for _, v := range y {
		posRate += v
	}
	if n > 0 {
		posRate /= float32(n)
	}
	if posRate <= 0 {
		posRate = 1e-6
	}
	if posRate >= 1 {
		posRate = 1 - 1e-6
	}
	bias := float32(math.Log(float64(posRate) / float64(1-posRate)))

	e := &Ensemble{Task: BinaryClassification, Bias: []float32{bias}, LearningRate: opt.Tree.LearningRate}
	rs := newRoundState(matrix.NFeatures())

	logits := make([]float32, n)
	for i := range logits {
		logits[i] = bias
	}

	gradients := make([]float32, n)
	hessians := make([]float32, n)

	rep.Begin("gbdt binary classification rounds", opt.MaxRounds)
	for round := 0; round < opt.MaxRounds; round++ {
		if kill.IsTripped() {
			break
		}
		for i := range gradients {
			p := sigmoid(float64(logits[i]))
			gradients[i] = float32(p) - y[i]
			hessians[i] = float32(p * (1 - p))
		}

		tree, gain := Fit(matrix, instructions, gradients, hessians, false, opt.Tree, kill)
		e.Rounds = append(e.Rounds, []*Node{tree})

		for i := 0; i < n; i++ {
			logits[i] += tree.Predict(rowBinOf(matrix, i))
		}

		loss := logLoss(logits, y)
		if rs.recordRound(gain, loss, opt) {
			rep.Info("early stopping: no significant decrease in loss")
			rep.Advance(1)
			break
		}
		rep.Advance(1)
	}
	rep.End()

	rs.finalize(e)
	return e
}

// FitMulticlassClassifier trains a softmax-loss GBDT ensemble, one tree per
// class per round. y holds class indices in [0, nClasses) aligned with
// matrix rows.
func FitMulticlassClassifier(matrix bin.Matrix, instructions []bin.Instruction, y []int, nClasses int, opt EnsembleTrainOptions, kill *killchip.Chip, rep report.Reporter) *Ensemble {
	n := matrix.NRows()

	counts := make([]float64, nClasses)
	for _, c := range y {
		counts[c]++
	}
	bias := make([]float32, nClasses)
	for k := range bias {
		p := counts[k] / float64(n)
		if p <= 0 {
			p = 1e-6
		}
		bias[k] = float32(math.Log(p))
	}

	e := &Ensemble{Task: MulticlassClassification, NClasses: nClasses, Bias: bias, LearningRate: opt.Tree.LearningRate}
	rs := newRoundState(matrix.NFeatures())

	logits := make([][]float32, n)
	for i := range logits {
		logits[i] = append([]float32(nil), bias...)
	}

	gradients := make([]float32, n)
	hessians := make([]float32, n)

	rep.Begin("gbdt multiclass rounds", opt.MaxRounds)
	for round := 0; round < opt.MaxRounds; round++ {
		if kill.IsTripped() {
			break
		}
		roundTrees := make([]*Node, nClasses)
		var roundGain FeatureGain

		for k := 0; k < nClasses; k++ {
			for i := 0; i < n; i++ {
				p := softmax(logits[i])[k]
				target := 0.0
				if y[i] == k {
					target = 1.0
				}
				gradients[i] = float32(p - target)
				hessians[i] = float32(p * (1 - p))
			}

			tree, gain := Fit(matrix, instructions, gradients, hessians, false, opt.Tree, kill)
			roundTrees[k] = tree
			if roundGain == nil {
				roundGain = make(FeatureGain, len(gain))
			}
			for i, g := range gain {
				roundGain[i] += g
			}

			for i := 0; i < n; i++ {
				logits[i][k] += tree.Predict(rowBinOf(matrix, i))
			}
		}

		e.Rounds = append(e.Rounds, roundTrees)

		loss := multinomialLoss(logits, y)
		if rs.recordRound(roundGain, loss, opt) {
			rep.Info("early stopping: no significant decrease in loss")
			rep.Advance(1)
			break
		}
		rep.Advance(1)
	}
	rep.End()

	rs.finalize(e)
	return e
}

func rowBinOf(matrix bin.Matrix, row int) func(feature int) int {
	return func(feature int) int { return matrix.Bin(row, feature) }
}

func mse(preds, y []float32) float64 {
	var sum float64
	for i := range preds {
		d := float64(preds[i] - y[i])
		sum += d * d
	}
	if len(preds) == 0 {
		return 0
	}
	return sum / float64(len(preds))
}

func logLoss(logits, y []float32) float64 {
	var sum float64
	for i, l := range logits {
		p := sigmoid(float64(l))
		p = math.Min(math.Max(p, 1e-12), 1-1e-12)
		if y[i] > 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	if len(logits) == 0 {
		return 0
	}
	return sum / float64(len(logits))
}

func multinomialLoss(logits [][]float32, y []int) float64 {
	var sum float64
	for i, row := range logits {
		p := softmax(row)
		v := math.Max(p[y[i]], 1e-12)
		sum -= math.Log(v)
	}
	if len(logits) == 0 {
		return 0
	}
	return sum / float64(len(logits))
}
