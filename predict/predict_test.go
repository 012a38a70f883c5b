package predict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/linear"
	"github.com/wlattner/gbt/model"
	"github.com/wlattner/gbt/split"
)

func treeModelFixture() *model.Model {
	leftLeaf := &gbt.Node{Leaf: true, Value: -2}
	rightLeaf := &gbt.Node{Leaf: true, Value: 4}
	root := &gbt.Node{
		Feature:    0,
		Continuous: &split.Continuous{BinIndex: 2, SplitValue: 1, InvalidDirection: split.Left},
		Left:       leftLeaf,
		Right:      rightLeaf,
	}
	ensemble := &gbt.Ensemble{
		Task:   gbt.Regression,
		Bias:   []float32{1},
		Rounds: [][]*gbt.Node{{root}},
	}
	return &model.Model{
		Task: gbt.Regression,
		Body: model.Body{
			GBT:             ensemble,
			BinInstructions: []bin.Instruction{{Kind: bin.Number, Thresholds: []float32{1}}},
		},
	}
}

func linearModelFixture() *model.Model {
	lm := &linear.Model{
		Task:    gbt.BinaryClassification,
		Bias:    []float64{0.2},
		Weights: [][]float64{{0.5, -0.1}},
	}
	return &model.Model{
		Task:        gbt.BinaryClassification,
		ClassLabels: []string{"yes", "no"},
		Body:        model.Body{Linear: lm},
	}
}

func TestPredictTreeRegressionRoutesLowValueLeft(t *testing.T) {
	m := treeModelFixture()
	out := Predict(m, []float64{0}) // 0 <= threshold 1 -> bin 1 < BinIndex 2 -> Left
	assert.InDelta(t, 1+(-2), out.Value, 1e-9)
}

func TestPredictTreeRegressionRoutesHighValueRight(t *testing.T) {
	m := treeModelFixture()
	out := Predict(m, []float64{5}) // 5 > threshold 1 -> bin 2 -> Right
	assert.InDelta(t, 1+4, out.Value, 1e-9)
}

func TestPredictLinearBinaryClassification(t *testing.T) {
	m := linearModelFixture()
	out := Predict(m, []float64{1, 0})
	require.Len(t, out.Probabilities, 1)
	assert.Equal(t, "yes", out.ClassLabel)
}

func TestPredictWithContributionsSumsToScoredLogitForTree(t *testing.T) {
	m := treeModelFixture()
	row := []float64{5}

	_, baseline, contribs := PredictWithContributions(m, row)

	var total float64
	for _, c := range contribs {
		total += c.Value
	}

	wantLogit := float64(m.Body.GBT.Bias[0]) + float64(rootPredict(m, row))
	assert.InDelta(t, wantLogit, baseline+total, 1e-9)
}

func rootPredict(m *model.Model, row []float64) float32 {
	binOf := func(f int) int {
		ins := m.Body.BinInstructions[f]
		return ins.BinNumber(row[f])
	}
	return m.Body.GBT.Rounds[0][0].Predict(binOf)
}

func TestPredictWithContributionsSumsToScoredLogitForLinear(t *testing.T) {
	m := linearModelFixture()
	row := []float64{3, -1}

	out, baseline, contribs := PredictWithContributions(m, row)
	_ = out

	var total float64
	for _, c := range contribs {
		total += c.Value
	}

	want := m.Body.Linear.PredictLogits(row)[0]
	assert.InDelta(t, want, baseline+total, 1e-9)
}

func TestPredictWithContributionsAttributesToSplittingFeature(t *testing.T) {
	m := treeModelFixture()
	_, _, contribs := PredictWithContributions(m, []float64{5})

	require.Len(t, contribs, 1)
	assert.NotZero(t, contribs[0].Value)
}
