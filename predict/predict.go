// Package predict implements the production inference runtime (§1's
// "secondary production runtime"): load a serialized model.Model and
// produce predictions, optionally decomposed into per-feature contributions
// via a Saabas-style approximation to SHAP (original_source/crates/core/predict.rs).
package predict

import (
	"math"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/linear"
	"github.com/wlattner/gbt/model"
	"github.com/wlattner/gbt/split"
)

// Output is the task-appropriate prediction for one row.
type Output struct {
	Task gbt.Task

	// Regression
	Value float64

	// BinaryClassification / MulticlassClassification
	Probabilities []float64 // len 1 (binary, probability of ClassLabels[0]) or NClasses (multiclass)
	ClassIndex    int
	ClassLabel    string
}

// FeatureContribution is one feature's share of the prediction relative to
// the ensemble's baseline, in the units of the model's output (a logit for
// classification tasks, the raw target for regression).
type FeatureContribution struct {
	FeatureIndex int
	Value        float64
}

func logitsFor(m *model.Model, row []float64) []float64 {
	if m.Body.GBT != nil {
		binOf := func(f int) int {
			ins := m.Body.BinInstructions[f]
			if ins.Kind == bin.Number {
				return ins.BinNumber(row[f])
			}
			return ins.BinEnum(int(row[f]))
		}
		logits := m.Body.GBT.PredictLogits(binOf)
		out := make([]float64, len(logits))
		for i, v := range logits {
			out[i] = float64(v)
		}
		return out
	}
	return m.Body.Linear.PredictLogits(row)
}

// Predict scores one row, already encoded in grid.FeatureMatrix's
// convention (Number columns pass through, Enum columns as variant index).
func Predict(m *model.Model, row []float64) Output {
	logits := logitsFor(m, row)

	switch m.Task {
	case gbt.Regression:
		return Output{Task: m.Task, Value: logits[0]}

	case gbt.BinaryClassification:
		// the binary target is trained with label 1 meaning ClassLabels[0]
		// (grid.BinaryLabels), so p is the probability of ClassLabels[0].
		p := sigmoid(logits[0])
		class := 1
		if p >= 0.5 {
			class = 0
		}
		return Output{
			Task:          m.Task,
			Probabilities: []float64{p},
			ClassIndex:    class,
			ClassLabel:    m.ClassLabels[class],
		}

	default:
		probs := softmax(logits)
		class := argmax(probs)
		return Output{
			Task:          m.Task,
			Probabilities: probs,
			ClassIndex:    class,
			ClassLabel:    m.ClassLabels[class],
		}
	}
}

// PredictWithContributions scores row and additionally decomposes the
// scored class's logit into a per-feature contribution plus a baseline, so
// that Baseline + Σ Contributions[i].Value == the scored logit (within
// floating-point rounding). For multiclass, contributions are computed for
// the predicted class only.
func PredictWithContributions(m *model.Model, row []float64) (Output, float64, []FeatureContribution) {
	out := Predict(m, row)

	outputIndex := 0
	if m.Task == gbt.MulticlassClassification {
		outputIndex = out.ClassIndex
	}

	if m.Body.Linear != nil {
		baseline, contribs := linearContributions(m.Body.Linear, row, outputIndex)
		return out, baseline, contribs
	}

	baseline, contribs := treeContributions(m.Body.GBT, m.Body.BinInstructions, row, outputIndex)
	return out, baseline, contribs
}

func linearContributions(lm *linear.Model, row []float64, outputIndex int) (float64, []FeatureContribution) {
	w := lm.Weights[outputIndex]
	contribs := make([]FeatureContribution, len(row))
	for f, xv := range row {
		contribs[f] = FeatureContribution{FeatureIndex: f, Value: w[f] * xv}
	}
	return lm.Bias[outputIndex], contribs
}

func treeContributions(e *gbt.Ensemble, instructions []bin.Instruction, row []float64, outputIndex int) (float64, []FeatureContribution) {
	binOf := func(f int) int {
		ins := instructions[f]
		if ins.Kind == bin.Number {
			return ins.BinNumber(row[f])
		}
		return ins.BinEnum(int(row[f]))
	}

	nFeatures := len(instructions)
	totals := make([]float64, nFeatures)
	baseline := float64(e.Bias[outputIndex])

	for _, round := range e.Rounds {
		if outputIndex >= len(round) {
			continue
		}
		tree := round[outputIndex]
		baseline += subtreeMeanValue(tree)
		walkContribution(tree, binOf, totals)
	}

	contribs := make([]FeatureContribution, nFeatures)
	for f := range contribs {
		contribs[f] = FeatureContribution{FeatureIndex: f, Value: totals[f]}
	}
	return baseline, contribs
}

// subtreeMeanValue is the unweighted mean of every leaf value reachable
// from n: the Saabas reference value a branch node uses when the
// persisted tree carries no per-node training-example counts to weight by.
func subtreeMeanValue(n *gbt.Node) float64 {
	if n.Leaf {
		return float64(n.Value)
	}
	return (subtreeMeanValue(n.Left) + subtreeMeanValue(n.Right)) / 2
}

// walkContribution attributes, at each branch on the path binOf takes
// through tree, the change in subtreeMeanValue to that branch's splitting
// feature — the Saabas decomposition of one tree's output.
func walkContribution(tree *gbt.Node, binOf func(int) int, totals []float64) {
	cur := tree
	prevValue := subtreeMeanValue(cur)
	for !cur.Leaf {
		b := binOf(cur.Feature)
		var next *gbt.Node
		if routeLeft(cur, b) {
			next = cur.Left
		} else {
			next = cur.Right
		}
		nextValue := subtreeMeanValue(next)
		totals[cur.Feature] += nextValue - prevValue
		prevValue = nextValue
		cur = next
	}
}

func routeLeft(n *gbt.Node, b int) bool {
	if n.Continuous != nil {
		return n.Continuous.Route(b) == split.Left
	}
	return n.Discrete.Route(b) == split.Left
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

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

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}
