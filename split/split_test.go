package split

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/binstats"
	"github.com/wlattner/gbt/table"
)

func defaultOptions() Options {
	return Options{
		MinExamplesPerNode:         1,
		MinSumHessiansPerNode:      0,
		L2RegularizationContinuous: 0,
		L2RegularizationDiscrete:   0,
		SmoothingFactorDiscrete:    10,
		NWorkers:                   1,
	}
}

func TestGainFormula(t *testing.T) {
	// two perfectly separated halves should produce positive gain over the
	// no-split baseline
	g := Gain(4, 2, -4, 2, 0, 4, 0)
	assert.Greater(t, g, 0.0)
}

func TestContinuousInvalidRoutesLeft(t *testing.T) {
	c := &Continuous{BinIndex: 2, SplitValue: 1.5, InvalidDirection: Left}
	assert.Equal(t, Left, c.Route(0))
	assert.Equal(t, Left, c.Route(1))
	assert.Equal(t, Right, c.Route(2))
}

func TestDiscreteRoutesByBitset(t *testing.T) {
	dirs := bitset.New(3)
	dirs.Set(0)
	dirs.Set(2)
	d := &Discrete{Directions: dirs, NBins: 3}

	assert.Equal(t, Left, d.Route(0))
	assert.Equal(t, Right, d.Route(1))
	assert.Equal(t, Left, d.Route(2))
}

func TestBestChoosesHighestGainFeature(t *testing.T) {
	tbl := &table.Table{
		NRows: 8,
		Columns: []table.Column{
			{Name: "strong", Kind: table.KindNumber, Numbers: []float64{1, 1, 1, 1, 9, 9, 9, 9}},
			{Name: "weak", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		},
	}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)

	// gradients perfectly separated by "strong": negative for the first
	// half, positive for the second.
	gradients := []float32{-1, -1, -1, -1, 1, 1, 1, 1}
	hessians := []float32{1, 1, 1, 1, 1, 1, 1, 1}

	stats := binstats.ComputeRoot(matrix, gradients, hessians, false, 1)

	var gParent, hParent float64
	for _, g := range gradients {
		gParent += float64(g)
	}
	for _, h := range hessians {
		hParent += float64(h)
	}

	splittable := []bool{true, true}
	best, _ := Best(stats, instructions, gParent, hParent, len(gradients), splittable, defaultOptions())

	require.NotNil(t, best)
	assert.Equal(t, 0, best.Feature, "the perfectly-separating feature should win")
}

func TestBestReturnsNilWhenNoFeatureSplittable(t *testing.T) {
	tbl := &table.Table{
		NRows:   4,
		Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4}}},
	}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)
	gradients := []float32{1, 1, 1, 1}
	hessians := []float32{1, 1, 1, 1}
	stats := binstats.ComputeRoot(matrix, gradients, hessians, false, 1)

	best, childSplittable := Best(stats, instructions, 4, 4, 4, []bool{false}, defaultOptions())
	assert.Nil(t, best)
	assert.False(t, childSplittable[0])
}

func TestBestRespectsMinExamplesPerNode(t *testing.T) {
	tbl := &table.Table{
		NRows:   4,
		Columns: []table.Column{{Name: "x", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4}}},
	}
	instructions := bin.Compute(tbl, 0, 0)
	matrix := bin.NewColumnMajor(tbl, instructions)
	gradients := []float32{-1, -1, 1, 1}
	hessians := []float32{1, 1, 1, 1}
	stats := binstats.ComputeRoot(matrix, gradients, hessians, false, 1)

	opt := defaultOptions()
	opt.MinExamplesPerNode = 10 // larger than any possible child
	best, _ := Best(stats, instructions, 0, 4, 4, []bool{true}, opt)
	assert.Nil(t, best)
}
