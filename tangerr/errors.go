// Package tangerr defines the error taxonomy that flows out of the training
// core to the CLI: ConfigError, InputError, TaskError, CapacityError, and
// ConvergenceError each carry enough context to format a useful message and
// to pick an exit code, without the core importing the CLI package.
package tangerr

import "fmt"

// ConfigError reports a problem with the config file: missing path,
// unparseable contents, or an unrecognized extension.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// InputError reports a problem with the training data itself: a missing
// file, a schema mismatch between train and test, a missing target column,
// or a target column containing invalid values.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("input error: %s", e.Msg)
}

func (e *InputError) Unwrap() error { return e.Err }

// TaskError reports a comparison metric that is incompatible with the
// inferred task (e.g. AUC-ROC requested for a regression task).
type TaskError struct {
	Task   string
	Metric string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task error: metric %q is not valid for task %q", e.Metric, e.Task)
}

// CapacityError reports an empty training, comparison, or test partition.
type CapacityError struct {
	Partition string
	NRows     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity error: %s partition has %d rows, need at least 1", e.Partition, e.NRows)
}

// ConvergenceError reports that no grid item produced a finite comparison
// metric value.
type ConvergenceError struct {
	NItems int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("convergence error: none of %d grid items produced a finite comparison metric", e.NItems)
}

// NothingTrainedError is returned when the kill chip tripped before any grid
// item completed; unlike Cancelled (a field on the grid result, not an
// error) there is no partial model to assemble in this case.
type NothingTrainedError struct{}

func (e *NothingTrainedError) Error() string {
	return "cancelled before any grid item completed; nothing to assemble"
}
