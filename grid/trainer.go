package grid

import (
	"math"
	"time"

	"github.com/wlattner/gbt/config"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/internal/report"
	"github.com/wlattner/gbt/metrics"
	"github.com/wlattner/gbt/model"
	"github.com/wlattner/gbt/tangerr"
)

// ItemResult is one grid item's training-and-comparison outcome: the
// comparison-set metrics, the scalar value used for selection (already
// sign-flipped for minimized metrics), and training duration.
type ItemResult struct {
	Config       config.GridItem
	Item         *TrainedItem
	Regression   *metrics.Regression
	Binary       *metrics.BinaryClassification
	Multiclass   *metrics.Multiclass
	ScalarValue  float64
	Duration     time.Duration
}

// Trainer runs the grid-training and selection phases (§4.7's
// train_grid/test_and_assemble_model) over a prepared Dataset.
type Trainer struct {
	Dataset          *Dataset
	ComparisonMetric string
	Grid             []config.GridItem
	Kill             *killchip.Chip
	Reporter         report.Reporter
}

// NewTrainer resolves the comparison metric and hyperparameter grid from
// cfg (falling back to task-appropriate defaults), validating the metric
// against ds.Task.
func NewTrainer(ds *Dataset, cfg config.Config, kill *killchip.Chip, rep report.Reporter) (*Trainer, error) {
	metric := cfg.Train.ComparisonMetric
	if metric == "" {
		metric = defaultComparisonMetric(ds.Task)
	}
	if err := validateComparisonMetric(ds.Task, metric); err != nil {
		return nil, err
	}

	items := cfg.Train.Grid
	if len(items) == 0 {
		items = DefaultGrid()
	}

	if rep == nil {
		rep = report.Noop{}
	}
	if kill == nil {
		kill = killchip.New()
	}

	return &Trainer{Dataset: ds, ComparisonMetric: metric, Grid: items, Kill: kill, Reporter: rep}, nil
}

// TrainGrid trains every grid item in order, scoring each on the
// comparison partition, stopping early (without error) if the kill chip
// trips between items.
func (tr *Trainer) TrainGrid() ([]ItemResult, bool) {
	var results []ItemResult
	partial := false

	tr.Reporter.Begin("training grid", len(tr.Grid))
	for i, item := range tr.Grid {
		if tr.Kill.IsTripped() {
			partial = true
			break
		}

		start := time.Now()
		trained := trainItem(item, tr.Dataset, tr.Kill, tr.Reporter)
		duration := time.Since(start)

		reg, bin, multi := evaluate(trained, tr.Dataset, tr.Dataset.Comparison)
		scalar := scalarValue(tr.ComparisonMetric, reg, bin, multi)

		results = append(results, ItemResult{
			Config:      item,
			Item:        trained,
			Regression:  reg,
			Binary:      bin,
			Multiclass:  multi,
			ScalarValue: scalar,
			Duration:    duration,
		})
		tr.Reporter.Advance(1)
		_ = i
	}
	tr.Reporter.End()

	return results, partial
}

// TestAndAssembleModel selects the best grid item by comparison-metric
// scalar value (discarding non-finite values, earliest wins ties),
// re-evaluates it on the test partition, and assembles the final Model
// record.
func (tr *Trainer) TestAndAssembleModel(results []ItemResult, partial bool) (*model.Model, error) {
	if len(results) == 0 {
		return nil, &tangerr.NothingTrainedError{}
	}

	best := -1
	var bestScalar float64
	for i, r := range results {
		if math.IsNaN(r.ScalarValue) || math.IsInf(r.ScalarValue, 0) {
			continue
		}
		if best < 0 || r.ScalarValue > bestScalar {
			best = i
			bestScalar = r.ScalarValue
		}
	}
	if best < 0 {
		return nil, &tangerr.ConvergenceError{NItems: len(results)}
	}

	winner := results[best]
	testReg, testBin, testMulti := evaluate(winner.Item, tr.Dataset, tr.Dataset.Test)

	baselineReg, baselineBin, baselineMulti := computeBaseline(tr.Dataset)

	summaries := make([]model.GridItemSummary, len(results))
	for i, r := range results {
		summaries[i] = model.GridItemSummary{
			Kind:            r.Config.Kind,
			Hyperparameters: r.Config.Hyperparameters,
			ScalarMetric:    r.ScalarValue,
			DurationSeconds: r.Duration.Seconds(),
		}
	}

	m := &model.Model{
		ID:                 model.NewID(),
		Version:            model.FormatVersion,
		Date:               time.Now().UTC().Format(time.RFC3339),
		TargetName:         tr.Dataset.TargetName,
		Task:               tr.Dataset.Task,
		ClassLabels:        tr.Dataset.ClassLabels,
		Body:               model.Body{GBT: winner.Item.GBT, BinInstructions: winner.Item.BinInstructions, Linear: winner.Item.Linear},
		BaselineRegression: baselineReg,
		BaselineBinary:     baselineBin,
		BaselineMulticlass: baselineMulti,
		ComparisonMetric:   tr.ComparisonMetric,
		GridItems:          summaries,
		BestItemIndex:      best,
		TestRegression:     testReg,
		TestBinary:         testBin,
		TestMulticlass:     testMulti,
		TrainStats:         tr.Dataset.TrainStats,
		TestStats:          tr.Dataset.TestStats,
		OverallStats:        tr.Dataset.OverallStats,
		PartialResult:      partial,
	}
	return m, nil
}

// computeBaseline scores a constant predictor (train-target mean for
// regression, train-target class frequencies for classification) on the
// test partition, per §4.7.
func computeBaseline(ds *Dataset) (*metrics.Regression, *metrics.BinaryClassification, *metrics.Multiclass) {
	switch ds.Task {
	case gbt.Regression:
		trainY := RegressionLabels(ds.Train, ds.TargetIndex)
		mean := 0.0
		for _, v := range trainY {
			mean += v
		}
		if len(trainY) > 0 {
			mean /= float64(len(trainY))
		}
		testY := RegressionLabels(ds.Test, ds.TargetIndex)
		preds := make([]float64, len(testY))
		for i := range preds {
			preds[i] = mean
		}
		m := metrics.ComputeRegression(preds, testY)
		return &m, nil, nil

	case gbt.BinaryClassification:
		trainY := BinaryLabels(ds.Train, ds.TargetIndex, ds.ClassLabels)
		var posRate float64
		for _, v := range trainY {
			posRate += v
		}
		if len(trainY) > 0 {
			posRate /= float64(len(trainY))
		}
		testY := BinaryLabels(ds.Test, ds.TargetIndex, ds.ClassLabels)
		probs := make([]float64, len(testY))
		for i := range probs {
			probs[i] = posRate
		}
		m := metrics.ComputeBinaryClassification(probs, testY)
		return nil, &m, nil

	default: // gbt.MulticlassClassification
		trainY := MulticlassLabels(ds.Train, ds.TargetIndex, ds.ClassLabels)
		counts := make([]int, ds.NClasses)
		for _, c := range trainY {
			counts[c]++
		}
		majority := 0
		for k, c := range counts {
			if c > counts[majority] {
				majority = k
			}
		}
		testY := MulticlassLabels(ds.Test, ds.TargetIndex, ds.ClassLabels)
		preds := make([]int, len(testY))
		for i := range preds {
			preds[i] = majority
		}
		m := metrics.ComputeMulticlass(preds, testY)
		return nil, nil, &m
	}
}
