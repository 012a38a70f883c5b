package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/table"
)

func TestComputeNumberStats(t *testing.T) {
	tbl := &table.Table{
		NRows:   5,
		Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4, math.NaN()}}},
	}
	cs := Compute(tbl)
	require.NotNil(t, cs[0].Number)
	ns := cs[0].Number
	assert.Equal(t, 1.0, ns.Min)
	assert.Equal(t, 4.0, ns.Max)
	assert.Equal(t, 4, ns.ValidCount)
	assert.Equal(t, 1, ns.InvalidCount)
	assert.InDelta(t, 2.5, ns.Mean, 1e-9)
}

func TestComputeEnumStats(t *testing.T) {
	tbl := &table.Table{
		NRows: 4,
		Columns: []table.Column{
			{Name: "c", Kind: table.KindEnum, Raw: []string{"a", "b", "a", ""}, Variants: []string{"a", "b"}, VariantIndex: map[string]int{"a": 0, "b": 1}},
		},
	}
	cs := Compute(tbl)
	require.NotNil(t, cs[0].Enum)
	es := cs[0].Enum
	assert.Equal(t, []int{2, 1}, es.Histogram)
	assert.Equal(t, 2, es.UniqueCount)
	assert.Equal(t, 1, es.InvalidCount)
}

func TestMergeNumberCombinesCounts(t *testing.T) {
	a := []ColumnStats{{Name: "x", Number: &NumberStats{Min: 0, Max: 5, Mean: 2, ValidCount: 3}}}
	b := []ColumnStats{{Name: "x", Number: &NumberStats{Min: -1, Max: 10, Mean: 4, ValidCount: 2}}}

	merged := Merge(a, b)
	require.NotNil(t, merged[0].Number)
	m := merged[0].Number
	assert.Equal(t, -1.0, m.Min)
	assert.Equal(t, 10.0, m.Max)
	assert.Equal(t, 5, m.ValidCount)
	assert.InDelta(t, (2.0*3+4.0*2)/5, m.Mean, 1e-9)
}

func TestMergeEnumUnionsVariants(t *testing.T) {
	a := []ColumnStats{{Name: "c", Enum: &EnumStats{Variants: []string{"a", "b"}, Histogram: []int{2, 1}}}}
	b := []ColumnStats{{Name: "c", Enum: &EnumStats{Variants: []string{"b", "c"}, Histogram: []int{3, 1}}}}

	merged := Merge(a, b)
	e := merged[0].Enum
	assert.Equal(t, []string{"a", "b", "c"}, e.Variants)
	assert.Equal(t, []int{2, 4, 1}, e.Histogram)
	assert.Equal(t, 3, e.UniqueCount)
}
