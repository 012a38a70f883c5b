// Package grid implements the training orchestrator (§4.7): dataset
// splitting, the stats pipeline, hyperparameter grid expansion, per-item
// training and comparison-set scoring, best-item selection, and final test
// evaluation.
package grid

import (
	"math"
	"math/rand"
	"sort"

	"github.com/wlattner/gbt/config"
	"github.com/wlattner/gbt/gbt"
	"github.com/wlattner/gbt/internal/report"
	"github.com/wlattner/gbt/stats"
	"github.com/wlattner/gbt/table"
	"github.com/wlattner/gbt/tangerr"
)

// Dataset holds the three partitions plus everything derived from them
// during prepare(): the inferred task, the target column's class labels
// (classification only), and the merged column-stats vectors the model
// record eventually embeds.
type Dataset struct {
	Train      *table.Table
	Comparison *table.Table
	Test       *table.Table

	TargetName  string
	TargetIndex int
	Task        gbt.Task
	NClasses    int
	ClassLabels []string // ordered by train-histogram count, ties by insertion order

	TrainStats      []stats.ColumnStats
	TestStats       []stats.ColumnStats
	OverallStats    []stats.ColumnStats
}

// shuffledIndices returns a permutation of [0, n) generated from a fresh
// PRNG seeded with seed. Calling this again with the same seed reproduces
// the identical permutation, which is what lets shuffleTable reseed once
// per column (rather than share one permutation array across columns)
// while still preserving row identity across every column of the table.
func shuffledIndices(n int, seed uint64) []int {
	r := rand.New(rand.NewSource(int64(seed)))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// shuffleTable permutes every row of t using the same seed re-applied to
// each column independently, per the supplemented shuffle semantics.
func shuffleTable(t *table.Table, seed uint64) {
	for c := range t.Columns {
		idx := shuffledIndices(t.NRows, seed)
		applyPermutation(&t.Columns[c], idx)
	}
}

func applyPermutation(col *table.Column, idx []int) {
	switch col.Kind {
	case table.KindNumber:
		out := make([]float64, len(idx))
		for i, j := range idx {
			out[i] = col.Numbers[j]
		}
		col.Numbers = out
	case table.KindEnum:
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = col.Raw[j]
		}
		col.Raw = out
	}
}

// sliceRows returns a new table holding rows [lo, hi) of t, sharing enum
// variant tables (a slice carries the same categorical encoding as its
// parent) but owning its own value slices.
func sliceRows(t *table.Table, lo, hi int) *table.Table {
	out := &table.Table{NRows: hi - lo, Columns: make([]table.Column, len(t.Columns))}
	for c, col := range t.Columns {
		nc := table.Column{Name: col.Name, Kind: col.Kind}
		switch col.Kind {
		case table.KindNumber:
			nc.Numbers = append([]float64(nil), col.Numbers[lo:hi]...)
		case table.KindEnum:
			nc.Raw = append([]string(nil), col.Raw[lo:hi]...)
			nc.Variants = col.Variants
			nc.VariantIndex = col.VariantIndex
		}
		out.Columns[c] = nc
	}
	return out
}

// dropColumn returns a copy of t without the column at index idx, used to
// build the feature-only table a model's binning instructions operate over.
func dropColumn(t *table.Table, idx int) *table.Table {
	out := &table.Table{NRows: t.NRows, Columns: make([]table.Column, 0, len(t.Columns)-1)}
	for i, col := range t.Columns {
		if i == idx {
			continue
		}
		out.Columns = append(out.Columns, col)
	}
	return out
}

// PrepareOptions bundles the inputs prepare needs beyond the config file:
// the combined table (single-file mode) or the train/test pair
// (externally split mode), and the target column name.
type PrepareOptions struct {
	Combined   *table.Table // nil when TrainTable/TestTable are both set
	TrainTable *table.Table // externally split mode
	TestTable  *table.Table
	Target     string
}

// Prepare implements §4.7's preparation phase: shuffle (if enabled),
// partition, compute stats, infer the task, and validate the target
// column.
func Prepare(opt PrepareOptions, cfg config.Config, rep report.Reporter) (*Dataset, error) {
	if rep == nil {
		rep = report.Noop{}
	}

	var trainTbl, comparisonTbl, testTbl *table.Table

	if opt.Combined != nil {
		full := opt.Combined
		if cfg.Dataset.Shuffle.Enable {
			shuffleTable(full, cfg.Dataset.Shuffle.Seed)
		}
		n := full.NRows
		testN := int(math.Floor(float64(n) * cfg.Dataset.TestFraction))
		comparisonN := int(math.Floor(float64(n) * cfg.Dataset.ComparisonFraction))
		trainN := n - testN - comparisonN
		if trainN < 0 {
			trainN = 0
		}
		trainTbl = sliceRows(full, 0, trainN)
		comparisonTbl = sliceRows(full, trainN, trainN+comparisonN)
		testTbl = sliceRows(full, trainN+comparisonN, n)
	} else {
		full := opt.TrainTable
		if cfg.Dataset.Shuffle.Enable {
			shuffleTable(full, cfg.Dataset.Shuffle.Seed)
		}
		n := full.NRows
		comparisonN := int(math.Floor(float64(n) * cfg.Dataset.ComparisonFraction))
		trainN := n - comparisonN
		if trainN < 0 {
			trainN = 0
		}
		trainTbl = sliceRows(full, 0, trainN)
		comparisonTbl = sliceRows(full, trainN, n)
		testTbl = opt.TestTable
	}

	for name, n := range map[string]int{"train": trainTbl.NRows, "comparison": comparisonTbl.NRows, "test": testTbl.NRows} {
		if n == 0 {
			return nil, &tangerr.CapacityError{Partition: name, NRows: n}
		}
		if n < minRecommendedPartitionRows {
			rep.Info("warning: " + name + " partition has only a few rows, metrics may be unstable")
		}
	}

	targetIdx := trainTbl.ColumnIndex(opt.Target)
	if targetIdx < 0 {
		return nil, &tangerr.InputError{Msg: "target column " + opt.Target + " not found"}
	}

	if err := validateTargetColumn(trainTbl.Columns[targetIdx]); err != nil {
		return nil, err
	}
	if err := validateTargetColumn(comparisonTbl.Columns[targetIdx]); err != nil {
		return nil, err
	}
	if err := validateTargetColumn(testTbl.Columns[targetIdx]); err != nil {
		return nil, err
	}

	task, nClasses, classLabels := inferTask(trainTbl.Columns[targetIdx])

	trainStats := stats.Compute(trainTbl)
	testStats := stats.Compute(testTbl)
	overall := stats.Merge(trainStats, testStats)

	return &Dataset{
		Train:        trainTbl,
		Comparison:   comparisonTbl,
		Test:         testTbl,
		TargetName:   opt.Target,
		TargetIndex:  targetIdx,
		Task:         task,
		NClasses:     nClasses,
		ClassLabels:  classLabels,
		TrainStats:   trainStats,
		TestStats:    testStats,
		OverallStats: overall,
	}, nil
}

const minRecommendedPartitionRows = 10

func validateTargetColumn(col table.Column) error {
	switch col.Kind {
	case table.KindNumber:
		for _, v := range col.Numbers {
			if math.IsNaN(v) {
				return &tangerr.InputError{Msg: "target column " + col.Name + " contains invalid values"}
			}
		}
	case table.KindEnum:
		for _, v := range col.Raw {
			if v == "" {
				return &tangerr.InputError{Msg: "target column " + col.Name + " contains invalid values"}
			}
		}
	}
	return nil
}

func inferTask(target table.Column) (gbt.Task, int, []string) {
	if target.Kind == table.KindNumber {
		return gbt.Regression, 0, nil
	}

	histogram := make(map[string]int)
	for _, v := range target.Raw {
		histogram[v]++
	}

	labels := append([]string(nil), target.Variants...)
	sort.SliceStable(labels, func(i, j int) bool {
		return histogram[labels[i]] > histogram[labels[j]]
	})

	if len(target.Variants) == 2 {
		return gbt.BinaryClassification, 2, labels
	}
	return gbt.MulticlassClassification, len(target.Variants), labels
}

// FeatureMatrix builds a dense float64 feature matrix from t, excluding the
// target column: Number columns pass through as-is (NaN for invalid),
// Enum columns become their variant index (-1 for invalid). Both the tree
// and linear trainers consume this same representation — the tree trainer
// additionally bins it via a bin.Instruction built from the feature-only
// table (see FeatureTable).
func FeatureMatrix(t *table.Table, targetIdx int) [][]float64 {
	nFeatures := len(t.Columns) - 1
	out := make([][]float64, t.NRows)
	for r := 0; r < t.NRows; r++ {
		out[r] = make([]float64, nFeatures)
	}
	fi := 0
	for c, col := range t.Columns {
		if c == targetIdx {
			continue
		}
		switch col.Kind {
		case table.KindNumber:
			for r := 0; r < t.NRows; r++ {
				out[r][fi] = col.Numbers[r]
			}
		case table.KindEnum:
			for r := 0; r < t.NRows; r++ {
				out[r][fi] = float64(col.EnumValue(r))
			}
		}
		fi++
	}
	return out
}

// FeatureTable returns t with the target column removed, the shape the
// binning pipeline expects.
func FeatureTable(t *table.Table, targetIdx int) *table.Table {
	return dropColumn(t, targetIdx)
}

// RegressionLabels extracts the target column as float64 labels.
func RegressionLabels(t *table.Table, targetIdx int) []float64 {
	col := t.Columns[targetIdx]
	return append([]float64(nil), col.Numbers...)
}

// BinaryLabels extracts the target column as 0/1 labels, 1 meaning the
// label equals classLabels[0] (the positive/majority class).
func BinaryLabels(t *table.Table, targetIdx int, classLabels []string) []float64 {
	col := t.Columns[targetIdx]
	out := make([]float64, t.NRows)
	for r, v := range col.Raw {
		if v == classLabels[0] {
			out[r] = 1
		}
	}
	return out
}

// MulticlassLabels extracts the target column as class indices into
// classLabels.
func MulticlassLabels(t *table.Table, targetIdx int, classLabels []string) []int {
	col := t.Columns[targetIdx]
	index := make(map[string]int, len(classLabels))
	for i, l := range classLabels {
		index[l] = i
	}
	out := make([]int, t.NRows)
	for r, v := range col.Raw {
		out[r] = index[v]
	}
	return out
}
