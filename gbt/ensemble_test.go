package gbt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/internal/report"
	"github.com/wlattner/gbt/table"
)

func regressionEnsembleFixture(n int) (bin.Matrix, []bin.Instruction, []float32) {
	numbers := make([]float64, n)
	y := make([]float32, n)
	for i := 0; i < n; i++ {
		numbers[i] = float64(i)
		if i < n/2 {
			y[i] = 0
		} else {
			y[i] = 10
		}
	}
	tbl := &table.Table{NRows: n, Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: numbers}}}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)
	return matrix, instructions, y
}

func TestFitRegressorReducesTrainingLoss(t *testing.T) {
	matrix, instructions, y := regressionEnsembleFixture(40)
	opt := DefaultEnsembleTrainOptions()
	opt.MaxRounds = 10
	opt.Tree.MinExamplesPerNode = 1
	opt.Tree.MinSumHessiansPerNode = 0

	e := FitRegressor(matrix, instructions, y, opt, killchip.New(), report.Noop{})
	require.NotEmpty(t, e.TrainLosses)
	assert.Less(t, e.TrainLosses[len(e.TrainLosses)-1], e.TrainLosses[0])
}

func TestFitRegressorPredictLogitsMatchesManualSum(t *testing.T) {
	matrix, instructions, y := regressionEnsembleFixture(20)
	opt := DefaultEnsembleTrainOptions()
	opt.MaxRounds = 3
	opt.Tree.MinExamplesPerNode = 1
	opt.Tree.MinSumHessiansPerNode = 0

	e := FitRegressor(matrix, instructions, y, opt, killchip.New(), report.Noop{})

	binOf := func(row int) func(int) int {
		return func(f int) int { return matrix.Bin(row, f) }
	}

	for row := 0; row < matrix.NRows(); row++ {
		logits := e.PredictLogits(binOf(row))
		require.Len(t, logits, 1)

		var want float32 = e.Bias[0]
		for _, round := range e.Rounds {
			want += round[0].Predict(binOf(row))
		}
		assert.InDelta(t, float64(want), float64(logits[0]), 1e-6)
	}
}

func TestFitBinaryClassifierBiasIsLogOdds(t *testing.T) {
	n := 20
	numbers := make([]float64, n)
	y := make([]float32, n)
	for i := 0; i < n; i++ {
		numbers[i] = float64(i)
		if i < 5 {
			y[i] = 1
		}
	}
	tbl := &table.Table{NRows: n, Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: numbers}}}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)

	opt := DefaultEnsembleTrainOptions()
	opt.MaxRounds = 0 // bias only, no trees

	e := FitBinaryClassifier(matrix, instructions, y, opt, killchip.New(), report.Noop{})
	wantBias := math.Log(0.25 / 0.75)
	assert.InDelta(t, wantBias, float64(e.Bias[0]), 1e-4)
}

func TestFitMulticlassClassifierOutputDim(t *testing.T) {
	n := 30
	numbers := make([]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		numbers[i] = float64(i)
		y[i] = i % 3
	}
	tbl := &table.Table{NRows: n, Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: numbers}}}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)

	opt := DefaultEnsembleTrainOptions()
	opt.MaxRounds = 2
	opt.Tree.MinExamplesPerNode = 1
	opt.Tree.MinSumHessiansPerNode = 0

	e := FitMulticlassClassifier(matrix, instructions, y, 3, opt, killchip.New(), report.Noop{})
	assert.Equal(t, 3, e.OutputDim())
	assert.Len(t, e.Rounds[0], 3)
}

func TestEarlyStoppingHaltsBeforeMaxRounds(t *testing.T) {
	matrix, instructions, y := regressionEnsembleFixture(40)
	opt := DefaultEnsembleTrainOptions()
	opt.MaxRounds = 200
	opt.Tree.MinExamplesPerNode = 1
	opt.Tree.MinSumHessiansPerNode = 0
	opt.EarlyStoppingFraction = 0.1
	opt.NRoundsWithoutImprovementToStop = 2
	opt.MinDecreaseInLossForSignificantChange = 1e6 // any real decrease fails this bar

	e := FitRegressor(matrix, instructions, y, opt, killchip.New(), report.Noop{})
	assert.Less(t, len(e.Rounds), opt.MaxRounds)
}
