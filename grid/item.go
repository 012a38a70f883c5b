package grid

import (
	"math"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/config"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/internal/report"
	"github.com/wlattner/gbt/linear"
	"github.com/wlattner/gbt/metrics"
	"github.com/wlattner/gbt/table"
)

// DefaultGrid returns the hyperparameter grid used when the config file
// doesn't supply one: a linear baseline plus two tree configurations at
// different leaf budgets.
func DefaultGrid() []config.GridItem {
	return []config.GridItem{
		{Kind: "linear"},
		{Kind: "tree", Hyperparameters: map[string]float64{"max_leaf_nodes": 31, "max_rounds": 100}},
		{Kind: "tree", Hyperparameters: map[string]float64{"max_leaf_nodes": 63, "max_rounds": 100, "learning_rate": 0.05}},
	}
}

func treeOptionsFrom(item config.GridItem) gbt.EnsembleTrainOptions {
	opt := gbt.DefaultEnsembleTrainOptions()
	hp := item.Hyperparameters
	if v, ok := hp["max_leaf_nodes"]; ok {
		opt.Tree.MaxLeafNodes = int(v)
	}
	if v, ok := hp["max_depth"]; ok {
		opt.Tree.MaxDepth = int(v)
	}
	if v, ok := hp["min_examples_per_node"]; ok {
		opt.Tree.MinExamplesPerNode = int(v)
	}
	if v, ok := hp["learning_rate"]; ok {
		opt.Tree.LearningRate = v
	}
	if v, ok := hp["max_rounds"]; ok {
		opt.MaxRounds = int(v)
	}
	if v, ok := hp["l2_regularization"]; ok {
		opt.Tree.L2RegularizationContinuousSplits = v
		opt.Tree.L2RegularizationDiscreteSplits = v
	}
	return opt
}

func linearOptionsFrom(item config.GridItem) linear.TrainOptions {
	opt := linear.DefaultTrainOptions()
	hp := item.Hyperparameters
	if v, ok := hp["l2_regularization"]; ok {
		opt.L2Regularization = v
	}
	if v, ok := hp["learning_rate"]; ok {
		opt.LearningRate = v
	}
	if v, ok := hp["max_iterations"]; ok {
		opt.MaxIterations = int(v)
	}
	return opt
}

// TrainedItem is one grid item's trained predictor, carrying whichever
// bin.Instructions it needs to re-bin a feature row at prediction time
// (trees only; the linear model consumes the same raw feature vector
// directly).
type TrainedItem struct {
	Config config.GridItem

	GBT             *gbt.Ensemble
	BinInstructions []bin.Instruction

	Linear *linear.Model
}

// OutputDim is 1 for regression/binary, NClasses for multiclass.
func (ti *TrainedItem) OutputDim() int {
	if ti.GBT != nil {
		return ti.GBT.OutputDim()
	}
	return ti.Linear.OutputDim()
}

// PredictLogits predicts one row's raw (pre-sigmoid/softmax) output given
// its feature vector in grid.FeatureMatrix's encoding.
func (ti *TrainedItem) PredictLogits(x []float64) []float64 {
	if ti.GBT != nil {
		binOf := func(f int) int {
			ins := ti.BinInstructions[f]
			if ins.Kind == bin.Number {
				return ins.BinNumber(x[f])
			}
			return ins.BinEnum(int(x[f]))
		}
		logits := ti.GBT.PredictLogits(binOf)
		out := make([]float64, len(logits))
		for i, v := range logits {
			out[i] = float64(v)
		}
		return out
	}
	return ti.Linear.PredictLogits(x)
}

func toFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// trainItem trains one grid item on ds.Train per item.Config.Kind.
func trainItem(item config.GridItem, ds *Dataset, kill *killchip.Chip, rep report.Reporter) *TrainedItem {
	featureTable := FeatureTable(ds.Train, ds.TargetIndex)
	x := FeatureMatrix(ds.Train, ds.TargetIndex)

	switch item.Kind {
	case "linear":
		opt := linearOptionsFrom(item)
		switch ds.Task {
		case gbt.Regression:
			y := RegressionLabels(ds.Train, ds.TargetIndex)
			return &TrainedItem{Config: item, Linear: linear.FitRegressor(x, y, opt)}
		case gbt.BinaryClassification:
			y := BinaryLabels(ds.Train, ds.TargetIndex, ds.ClassLabels)
			return &TrainedItem{Config: item, Linear: linear.FitBinaryClassifier(x, y, opt)}
		default:
			y := MulticlassLabels(ds.Train, ds.TargetIndex, ds.ClassLabels)
			return &TrainedItem{Config: item, Linear: linear.FitMulticlassClassifier(x, y, ds.NClasses, opt)}
		}
	default: // "tree"
		instructions := bin.Compute(featureTable, 0, 0)
		matrix := bin.NewColumnMajor(featureTable, instructions)
		opt := treeOptionsFrom(item)

		var ensemble *gbt.Ensemble
		switch ds.Task {
		case gbt.Regression:
			y := toFloat32(RegressionLabels(ds.Train, ds.TargetIndex))
			ensemble = gbt.FitRegressor(matrix, instructions, y, opt, kill, rep)
		case gbt.BinaryClassification:
			y := toFloat32(BinaryLabels(ds.Train, ds.TargetIndex, ds.ClassLabels))
			ensemble = gbt.FitBinaryClassifier(matrix, instructions, y, opt, kill, rep)
		default:
			y := MulticlassLabels(ds.Train, ds.TargetIndex, ds.ClassLabels)
			ensemble = gbt.FitMulticlassClassifier(matrix, instructions, y, ds.NClasses, opt, kill, rep)
		}
		return &TrainedItem{Config: item, GBT: ensemble, BinInstructions: instructions}
	}
}

// evaluate scores a trained item against table t (the comparison or test
// partition), returning the task-appropriate metrics struct.
func evaluate(ti *TrainedItem, ds *Dataset, t *table.Table) (*metrics.Regression, *metrics.BinaryClassification, *metrics.Multiclass) {
	x := FeatureMatrix(t, ds.TargetIndex)

	switch ds.Task {
	case gbt.Regression:
		labels := RegressionLabels(t, ds.TargetIndex)
		preds := make([]float64, len(x))
		for i, row := range x {
			preds[i] = ti.PredictLogits(row)[0]
		}
		m := metrics.ComputeRegression(preds, labels)
		return &m, nil, nil

	case gbt.BinaryClassification:
		labels := BinaryLabels(t, ds.TargetIndex, ds.ClassLabels)
		probs := make([]float64, len(x))
		for i, row := range x {
			probs[i] = sigmoid(ti.PredictLogits(row)[0])
		}
		m := metrics.ComputeBinaryClassification(probs, labels)
		return nil, &m, nil

	default:
		labels := MulticlassLabels(t, ds.TargetIndex, ds.ClassLabels)
		preds := make([]int, len(x))
		for i, row := range x {
			logits := ti.PredictLogits(row)
			preds[i] = argmax(logits)
		}
		m := metrics.ComputeMulticlass(preds, labels)
		return nil, nil, &m
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
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
