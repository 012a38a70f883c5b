package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/gbt"
)

func TestFitRegressorRecoversLinearRelationship(t *testing.T) {
	// y = 2x + 1, no noise; ridge with small L2 should recover it closely.
	x := make([][]float64, 20)
	y := make([]float64, 20)
	for i := range x {
		v := float64(i)
		x[i] = []float64{v}
		y[i] = 2*v + 1
	}

	opt := TrainOptions{L2Regularization: 1e-6}
	m := FitRegressor(x, y, opt)

	require.Len(t, m.Weights, 1)
	assert.InDelta(t, 2.0, m.Weights[0][0], 0.05)
	assert.InDelta(t, 1.0, m.Bias[0], 0.5)
}

func TestFitRegressorEmptyInput(t *testing.T) {
	m := FitRegressor(nil, nil, DefaultTrainOptions())
	assert.Equal(t, gbt.Regression, m.Task)
	assert.Equal(t, 1, m.OutputDim())
}

func TestFitRegressorSingularFallsBackToMean(t *testing.T) {
	x := [][]float64{{1, 1}, {1, 1}, {1, 1}} // constant, collinear column
	y := []float64{3, 3, 3}
	m := FitRegressor(x, y, DefaultTrainOptions())
	assert.InDelta(t, 3.0, m.Bias[0], 1e-6)
}

func TestFitBinaryClassifierSeparatesClasses(t *testing.T) {
	x := [][]float64{{-2}, {-1}, {1}, {2}}
	y := []float64{0, 0, 1, 1}
	opt := TrainOptions{L2Regularization: 0.01, LearningRate: 0.5, MaxIterations: 500}
	m := FitBinaryClassifier(x, y, opt)

	for i, row := range x {
		p := 1 / (1 + math.Exp(-m.PredictLogits(row)[0]))
		if y[i] == 1 {
			assert.Greater(t, p, 0.5)
		} else {
			assert.Less(t, p, 0.5)
		}
	}
}

func TestFitMulticlassClassifierOutputDim(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {0}, {1}, {2}}
	y := []int{0, 1, 2, 0, 1, 2}
	opt := TrainOptions{L2Regularization: 0.01, LearningRate: 0.3, MaxIterations: 300}
	m := FitMulticlassClassifier(x, y, 3, opt)

	assert.Equal(t, 3, m.OutputDim())
	assert.Len(t, m.Weights, 3)
	assert.Len(t, m.Bias, 3)
}

func TestPredictLogitsLinear(t *testing.T) {
	m := &Model{Task: gbt.Regression, Bias: []float64{1}, Weights: [][]float64{{2, -1}}}
	got := m.PredictLogits([]float64{3, 4})
	// 1 + 2*3 + (-1)*4 = 3
	assert.InDelta(t, 3.0, got[0], 1e-9)
}
