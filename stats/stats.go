// Package stats computes the per-column statistics the grid orchestrator
// needs for task inference, baseline metrics, and the model record's
// embedded column-stats vectors (core/train.rs's Stats::compute, per
// SPEC_FULL.md's supplemented-features section).
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wlattner/gbt/table"
)

// NumberStats summarizes a KindNumber column.
type NumberStats struct {
	Min, Max     float64
	Mean         float64
	Variance     float64
	Std          float64
	P25, P50, P75 float64
	ValidCount   int
	InvalidCount int
}

// EnumStats summarizes a KindEnum column. Histogram[i] is the count of rows
// whose variant index is i; Histogram is ordered by first appearance in the
// source column, matching table.Column.Variants.
type EnumStats struct {
	Variants     []string
	Histogram    []int
	UniqueCount  int
	InvalidCount int
}

// ColumnStats is the per-column statistics record; exactly one of Number or
// Enum is non-nil, matching the column's table.Kind.
type ColumnStats struct {
	Name   string
	Number *NumberStats
	Enum   *EnumStats
}

// Compute returns one ColumnStats per column of t.
func Compute(t *table.Table) []ColumnStats {
	out := make([]ColumnStats, len(t.Columns))
	for i, col := range t.Columns {
		out[i] = computeColumn(col)
	}
	return out
}

func computeColumn(col table.Column) ColumnStats {
	cs := ColumnStats{Name: col.Name}
	switch col.Kind {
	case table.KindNumber:
		cs.Number = computeNumber(col.Numbers)
	case table.KindEnum:
		cs.Enum = computeEnum(col)
	}
	return cs
}

func computeNumber(values []float64) *NumberStats {
	var finite []float64
	invalid := 0
	for _, v := range values {
		if math.IsNaN(v) {
			invalid++
			continue
		}
		finite = append(finite, v)
	}

	ns := &NumberStats{ValidCount: len(finite), InvalidCount: invalid}
	if len(finite) == 0 {
		ns.Min, ns.Max = math.NaN(), math.NaN()
		return ns
	}

	sorted := append([]float64(nil), finite...)
	sort.Float64s(sorted)

	ns.Min = sorted[0]
	ns.Max = sorted[len(sorted)-1]
	ns.Mean = stat.Mean(finite, nil)
	if len(finite) > 1 {
		ns.Variance = stat.Variance(finite, nil)
		ns.Std = math.Sqrt(ns.Variance)
	}
	ns.P25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	ns.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	ns.P75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	return ns
}

func computeEnum(col table.Column) *EnumStats {
	es := &EnumStats{
		Variants:    append([]string(nil), col.Variants...),
		Histogram:   make([]int, len(col.Variants)),
		UniqueCount: len(col.Variants),
	}
	for _, v := range col.Raw {
		if v == "" {
			es.InvalidCount++
			continue
		}
		idx, ok := col.VariantIndex[v]
		if !ok {
			es.InvalidCount++
			continue
		}
		es.Histogram[idx]++
	}
	return es
}

// Merge combines two ColumnStats slices for the same columns (e.g. train and
// test) into one "overall" slice, matching core/train.rs's prepare() which
// computes train/test stats separately and merges them for the overall
// column-stats vector stored on the Model record.
func Merge(a, b []ColumnStats) []ColumnStats {
	out := make([]ColumnStats, len(a))
	for i := range a {
		out[i] = mergeColumn(a[i], b[i])
	}
	return out
}

func mergeColumn(a, b ColumnStats) ColumnStats {
	cs := ColumnStats{Name: a.Name}
	if a.Number != nil && b.Number != nil {
		cs.Number = mergeNumber(a.Number, b.Number)
	} else if a.Enum != nil && b.Enum != nil {
		cs.Enum = mergeEnum(a.Enum, b.Enum)
	} else if a.Number != nil {
		cs.Number = a.Number
	} else {
		cs.Enum = a.Enum
	}
	return cs
}

func mergeNumber(a, b *NumberStats) *NumberStats {
	n := &NumberStats{
		ValidCount:   a.ValidCount + b.ValidCount,
		InvalidCount: a.InvalidCount + b.InvalidCount,
	}
	n.Min = math.Min(a.Min, b.Min)
	n.Max = math.Max(a.Max, b.Max)
	total := float64(a.ValidCount + b.ValidCount)
	if total > 0 {
		n.Mean = (a.Mean*float64(a.ValidCount) + b.Mean*float64(b.ValidCount)) / total
		// quantiles/variance of the merge are approximated from the parts'
		// weighted values; exact recomputation would require the raw values,
		// which the merge step deliberately does not retain.
		wa, wb := float64(a.ValidCount)/total, float64(b.ValidCount)/total
		n.P25 = a.P25*wa + b.P25*wb
		n.P50 = a.P50*wa + b.P50*wb
		n.P75 = a.P75*wa + b.P75*wb
		n.Variance = a.Variance*wa + b.Variance*wb
	}
	n.Std = math.Sqrt(n.Variance)
	return n
}

func mergeEnum(a, b *EnumStats) *EnumStats {
	e := &EnumStats{
		Variants:     append([]string(nil), a.Variants...),
		Histogram:    append([]int(nil), a.Histogram...),
		InvalidCount: a.InvalidCount + b.InvalidCount,
	}
	idx := make(map[string]int, len(e.Variants))
	for i, v := range e.Variants {
		idx[v] = i
	}
	for i, v := range b.Variants {
		if existing, ok := idx[v]; ok {
			e.Histogram[existing] += b.Histogram[i]
			continue
		}
		idx[v] = len(e.Variants)
		e.Variants = append(e.Variants, v)
		e.Histogram = append(e.Histogram, b.Histogram[i])
	}
	e.UniqueCount = len(e.Variants)
	return e
}
