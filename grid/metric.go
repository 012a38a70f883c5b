package grid

import (
	"math"
	"strings"

	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/metrics"
	"github.com/wlattner/gbt/tangerr"
)

// defaultComparisonMetric returns the comparison metric name used when the
// config file doesn't specify one: RMSE for regression, AUC-ROC for binary
// classification, accuracy for multiclass.
func defaultComparisonMetric(task gbt.Task) string {
	switch task {
	case gbt.Regression:
		return "rmse"
	case gbt.BinaryClassification:
		return "auc"
	default:
		return "accuracy"
	}
}

// validMetricsFor lists the metric names a task supports.
func validMetricsFor(task gbt.Task) []string {
	switch task {
	case gbt.Regression:
		return []string{"rmse", "mse", "mae", "r2"}
	case gbt.BinaryClassification:
		return []string{"accuracy", "auc"}
	default:
		return []string{"accuracy"}
	}
}

// validateComparisonMetric fails with a TaskError when name isn't one of
// validMetricsFor(task).
func validateComparisonMetric(task gbt.Task, name string) error {
	for _, m := range validMetricsFor(task) {
		if m == name {
			return nil
		}
	}
	return &tangerr.TaskError{Task: taskName(task), Metric: name}
}

func taskName(task gbt.Task) string {
	switch task {
	case gbt.Regression:
		return "regression"
	case gbt.BinaryClassification:
		return "binary_classification"
	default:
		return "multiclass_classification"
	}
}

// maximizes reports whether higher values of the named metric are better;
// minimized metrics (rmse, mse, mae) are compared on their negation so
// "pick the highest scalar value" is the one selection rule for every
// metric.
func maximizes(name string) bool {
	switch strings.ToLower(name) {
	case "rmse", "mse", "mae":
		return false
	default:
		return true
	}
}

// scalarValue extracts the named metric's value from whichever metrics
// struct the task produced, applying the sign flip maximizes() calls for.
func scalarValue(name string, reg *metrics.Regression, bin *metrics.BinaryClassification, multi *metrics.Multiclass) float64 {
	var v float64
	switch strings.ToLower(name) {
	case "rmse":
		v = reg.RMSE
	case "mse":
		v = reg.MSE
	case "mae":
		v = reg.MAE
	case "r2":
		v = reg.R2
	case "auc":
		v = bin.AUC
	case "accuracy":
		if bin != nil {
			v = bin.Accuracy
		} else {
			v = multi.Accuracy
		}
	default:
		return math.NaN()
	}
	if !maximizes(name) {
		v = -v
	}
	return v
}
