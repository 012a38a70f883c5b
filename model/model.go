// Package model implements the winning-model record and its serialization:
// identifiers, task-specific body, baseline/comparison/test metrics,
// embedded column stats, and grid-item summaries.
package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/linear"
	"github.com/wlattner/gbt/metrics"
	"github.com/wlattner/gbt/stats"
)

// FormatVersion plays the role of the distilled spec's embedded semver
// string; bumped whenever Model's on-disk shape changes incompatibly.
const FormatVersion = "1.0.0"

// GridItemSummary is the Go-native TrainGridItemOutput: one grid item's
// hyperparameters, scalar comparison-metric value, and training duration.
type GridItemSummary struct {
	Kind            string
	Hyperparameters map[string]float64
	ScalarMetric    float64
	DurationSeconds float64
}

// Body holds exactly one of GBT or Linear, the winning grid item's trained
// predictor.
type Body struct {
	GBT             *gbt.Ensemble
	BinInstructions []bin.Instruction
	Linear          *linear.Model
}

// Model is the fully-assembled record the grid orchestrator produces and
// the predict package loads.
type Model struct {
	ID      string
	Version string
	Date    string // ISO-8601

	TargetName  string
	Task        gbt.Task
	ClassLabels []string // classification only

	Body Body

	BaselineRegression *metrics.Regression
	BaselineBinary     *metrics.BinaryClassification
	BaselineMulticlass *metrics.Multiclass

	ComparisonMetric string
	GridItems        []GridItemSummary
	BestItemIndex    int

	TestRegression *metrics.Regression
	TestBinary     *metrics.BinaryClassification
	TestMulticlass *metrics.Multiclass

	TrainStats   []stats.ColumnStats
	TestStats    []stats.ColumnStats
	OverallStats []stats.ColumnStats

	// PartialResult is true when training was cancelled before every grid
	// item completed; the assembled model is still the best of whatever
	// finished, per §4.8's "cancellation is cooperative and lossless".
	PartialResult bool
}

// NewID generates a fresh model identifier.
func NewID() string {
	return uuid.NewString()
}

// Save writes m to path using encoding/gob.
func Save(m *Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating model file")
	}
	defer f.Close()
	return encode(f, m)
}

func encode(w io.Writer, m *Model) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(m); err != nil {
		return errors.Wrap(err, "encoding model")
	}
	return nil
}

// Load reads a Model previously written by Save.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening model file")
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*Model, error) {
	var m Model
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding model")
	}
	return &m, nil
}
