package binstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/table"
)

func fixtureMatrix() (bin.Matrix, []float32, []float32) {
	tbl := &table.Table{
		NRows: 6,
		Columns: []table.Column{
			{Name: "x", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4, 5, 6}},
			{Name: "c", Kind: table.KindEnum, Raw: []string{"a", "b", "a", "b", "a", "b"}, Variants: []string{"a", "b"}, VariantIndex: map[string]int{"a": 0, "b": 1}},
		},
	}
	instructions := bin.Compute(tbl, 0, 0)
	m := bin.NewColumnMajor(tbl, instructions)
	g := []float32{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}
	h := []float32{1, 1, 1, 1, 1, 1}
	return m, g, h
}

func TestComputeRootSumsMatchTotals(t *testing.T) {
	m, g, h := fixtureMatrix()
	s := ComputeRoot(m, g, h, false, 1)

	var totalG, totalH float64
	for _, e := range s.Features[0] {
		totalG += e.SumGradients
		totalH += e.SumHessians
	}
	var wantG, wantH float64
	for i := range g {
		wantG += float64(g[i])
		wantH += float64(h[i])
	}
	assert.InDelta(t, wantG, totalG, 1e-9)
	assert.InDelta(t, wantH, totalH, 1e-9)
}

func TestComputeRootParallelMatchesSequential(t *testing.T) {
	// enough rows that ComputeRoot with 4 workers actually splits the work
	n := 2 * MinExamplesToParallelize
	numbers := make([]float64, n)
	g := make([]float32, n)
	h := make([]float32, n)
	for i := range numbers {
		numbers[i] = float64(i % 17)
		g[i] = float32(i%7) - 3
		h[i] = 1
	}
	tbl := &table.Table{NRows: n, Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: numbers}}}
	m := bin.NewColumnMajor(tbl, bin.Compute(tbl, 0, 0))
	seq := ComputeRoot(m, g, h, false, 1)
	par := ComputeRoot(m, g, h, false, 4)

	for f := range seq.Features {
		for b := range seq.Features[f] {
			assert.InDelta(t, seq.Features[f][b].SumGradients, par.Features[f][b].SumGradients, 1e-9)
			assert.InDelta(t, seq.Features[f][b].SumHessians, par.Features[f][b].SumHessians, 1e-9)
		}
	}
}

func TestComputeForNodeSubsetOfRoot(t *testing.T) {
	m, g, h := fixtureMatrix()
	all := []int{0, 1, 2, 3, 4, 5}
	full := ComputeForNode(m, all, g, h, false, 1)
	root := ComputeRoot(m, g, h, false, 1)

	for f := range full.Features {
		for b := range full.Features[f] {
			assert.InDelta(t, root.Features[f][b].SumGradients, full.Features[f][b].SumGradients, 1e-9)
		}
	}
}

func TestSubtractMatchesIndependentComputation(t *testing.T) {
	m, g, h := fixtureMatrix()
	parent := ComputeForNode(m, []int{0, 1, 2, 3, 4, 5}, g, h, false, 1)
	left := ComputeForNode(m, []int{0, 2, 4}, g, h, false, 1)
	rightDirect := ComputeForNode(m, []int{1, 3, 5}, g, h, false, 1)

	rightBySubtraction := Subtract(parent, left)

	require.Equal(t, len(rightDirect.Features), len(rightBySubtraction.Features))
	for f := range rightDirect.Features {
		for b := range rightDirect.Features[f] {
			assert.InDelta(t, rightDirect.Features[f][b].SumGradients, rightBySubtraction.Features[f][b].SumGradients, 1e-9)
			assert.InDelta(t, rightDirect.Features[f][b].SumHessians, rightBySubtraction.Features[f][b].SumHessians, 1e-9)
		}
	}
}

func TestSubtractInPlaceMatchesSubtract(t *testing.T) {
	m, g, h := fixtureMatrix()
	parent := ComputeForNode(m, []int{0, 1, 2, 3, 4, 5}, g, h, false, 1)
	left := ComputeForNode(m, []int{0, 2, 4}, g, h, false, 1)

	parentCopy := ComputeForNode(m, []int{0, 1, 2, 3, 4, 5}, g, h, false, 1)
	expected := Subtract(parent, left)
	SubtractInPlace(parentCopy, left)

	for f := range expected.Features {
		for b := range expected.Features[f] {
			assert.InDelta(t, expected.Features[f][b].SumGradients, parentCopy.Features[f][b].SumGradients, 1e-9)
		}
	}
}

func TestPoolResetsBeforeReuse(t *testing.T) {
	p := NewPool([]int{3, 2})
	s := p.Get()
	s.Features[0][0].SumGradients = 5
	p.Put(s)

	s2 := p.Get()
	assert.Equal(t, 0.0, s2.Features[0][0].SumGradients)
}
