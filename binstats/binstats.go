// Package binstats implements the bin-stats engine (§4.3): accumulating
// Σgradients/Σhessians per (feature, bin) for a set of example indices, the
// root computation with parallel row-chunk reduction, and the
// sibling-subtraction trick that makes histogram-based GBDT fast.
package binstats

import (
	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/internal/workerpool"
)

// MinExamplesToParallelize is the node size below which bin-stats
// computation runs single-threaded. Exported rather than hidden since
// callers tuning worker counts need to know where parallelism kicks in.
const MinExamplesToParallelize = 1024

// Entry is one (feature, bin)'s sufficient statistic.
type Entry struct {
	SumGradients float64
	SumHessians  float64
}

// Stats holds one Entry slice per feature, sized to that feature's n_bins.
type Stats struct {
	Features [][]Entry
}

// New allocates a zeroed Stats for the given per-feature bin counts.
func New(nBins []int) *Stats {
	s := &Stats{Features: make([][]Entry, len(nBins))}
	for f, n := range nBins {
		s.Features[f] = make([]Entry, n)
	}
	return s
}

// Reset zeroes s in place so it can be reused from a Pool.
func (s *Stats) Reset() {
	for _, f := range s.Features {
		for i := range f {
			f[i] = Entry{}
		}
	}
}

// addRow accumulates one example's gradient/hessian into every feature's
// matching bin.
func (s *Stats) addRow(m bin.Matrix, row int, g, h float32) {
	for f := 0; f < m.NFeatures(); f++ {
		b := m.Bin(row, f)
		e := &s.Features[f][b]
		e.SumGradients += float64(g)
		e.SumHessians += float64(h)
	}
}

func nBinsOf(m bin.Matrix) []int {
	nb := make([]int, m.NFeatures())
	for f := range nb {
		nb[f] = m.NBins(f)
	}
	return nb
}

// ComputeRoot computes stats over every row of m, parallelized by splitting
// rows into chunks (deterministic chunk_size = ceil(n/n_threads)) and
// reducing the per-chunk private stats by summation, exactly as §4.3
// prescribes for the root node. The returned buffer is freshly allocated;
// callers that want it drawn from (and later returned to) a Pool should use
// ComputeRootPooled instead.
func ComputeRoot(m bin.Matrix, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	return computeRoot(nil, m, gradients, hessians, constantHessian, nWorkers)
}

// ComputeRootPooled is ComputeRoot, but the root buffer (and the final
// reduction target in the parallel path) is checked out of pool rather than
// freshly allocated. The per-chunk partials stay plain allocations: they are
// merged and discarded within this call and never outlive it, so pooling
// them would only add Put traffic without saving anything.
func ComputeRootPooled(pool *Pool, m bin.Matrix, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	return computeRoot(pool, m, gradients, hessians, constantHessian, nWorkers)
}

func computeRoot(pool *Pool, m bin.Matrix, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	n := m.NRows()
	nb := nBinsOf(m)
	alloc := func() *Stats {
		if pool != nil {
			return pool.Get()
		}
		return New(nb)
	}

	if n < MinExamplesToParallelize || nWorkers <= 1 {
		s := alloc()
		for r := 0; r < n; r++ {
			g := gradients[r]
			h := float32(1)
			if !constantHessian {
				h = hessians[r]
			}
			s.addRow(m, r, g, h)
		}
		return s
	}

	chunks := workerpool.Chunks(n, nWorkers)
	partials := make([]*Stats, len(chunks))
	workerpool.Run(len(chunks), nWorkers, func(i int) {
		lo, hi := chunks[i][0], chunks[i][1]
		s := New(nb)
		for r := lo; r < hi; r++ {
			g := gradients[r]
			h := float32(1)
			if !constantHessian {
				h = hessians[r]
			}
			s.addRow(m, r, g, h)
		}
		partials[i] = s
	})

	total := alloc()
	for _, p := range partials {
		addInto(total, p)
	}
	return total
}

// ComputeForNode computes stats over the rows named by exampleIndex, the
// non-root case. Parallelism follows the same row-chunk rule as the root,
// gated by the same MinExamplesToParallelize threshold. The returned buffer
// is freshly allocated; see ComputeForNodePooled for the pooled variant.
func ComputeForNode(m bin.Matrix, exampleIndex []int, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	return computeForNode(nil, m, exampleIndex, gradients, hessians, constantHessian, nWorkers)
}

// ComputeForNodePooled is ComputeForNode, with the node's own buffer checked
// out of pool: this is the per-node checkout half of §5's "obtained before
// computing a node's stats, returned when its branch subtree is complete".
func ComputeForNodePooled(pool *Pool, m bin.Matrix, exampleIndex []int, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	return computeForNode(pool, m, exampleIndex, gradients, hessians, constantHessian, nWorkers)
}

func computeForNode(pool *Pool, m bin.Matrix, exampleIndex []int, gradients, hessians []float32, constantHessian bool, nWorkers int) *Stats {
	n := len(exampleIndex)
	nb := nBinsOf(m)
	alloc := func() *Stats {
		if pool != nil {
			return pool.Get()
		}
		return New(nb)
	}

	if n < MinExamplesToParallelize || nWorkers <= 1 {
		s := alloc()
		for _, r := range exampleIndex {
			g := gradients[r]
			h := float32(1)
			if !constantHessian {
				h = hessians[r]
			}
			s.addRow(m, r, g, h)
		}
		return s
	}

	chunks := workerpool.Chunks(n, nWorkers)
	partials := make([]*Stats, len(chunks))
	workerpool.Run(len(chunks), nWorkers, func(i int) {
		lo, hi := chunks[i][0], chunks[i][1]
		s := New(nb)
		for _, r := range exampleIndex[lo:hi] {
			g := gradients[r]
			h := float32(1)
			if !constantHessian {
				h = hessians[r]
			}
			s.addRow(m, r, g, h)
		}
		partials[i] = s
	})

	total := alloc()
	for _, p := range partials {
		addInto(total, p)
	}
	return total
}

func addInto(dst, src *Stats) {
	for f := range dst.Features {
		for b := range dst.Features[f] {
			dst.Features[f][b].SumGradients += src.Features[f][b].SumGradients
			dst.Features[f][b].SumHessians += src.Features[f][b].SumHessians
		}
	}
}

// Subtract computes the larger child's stats as parent - smaller into a
// freshly allocated Stats, leaving parent unchanged. The tree trainer uses
// SubtractInPlace instead, which reuses the parent's buffer as the larger
// child's rather than allocating.
func Subtract(parent, smaller *Stats) *Stats {
	out := &Stats{Features: make([][]Entry, len(parent.Features))}
	for f := range parent.Features {
		out.Features[f] = make([]Entry, len(parent.Features[f]))
		for b := range parent.Features[f] {
			out.Features[f][b].SumGradients = parent.Features[f][b].SumGradients - smaller.Features[f][b].SumGradients
			out.Features[f][b].SumHessians = parent.Features[f][b].SumHessians - smaller.Features[f][b].SumHessians
		}
	}
	return out
}

// SubtractInPlace overwrites parent with parent - smaller, realizing the
// "parent's buffer becomes the larger child's buffer" ownership rule from
// §9's design note without an extra allocation.
func SubtractInPlace(parent, smaller *Stats) {
	for f := range parent.Features {
		for b := range parent.Features[f] {
			parent.Features[f][b].SumGradients -= smaller.Features[f][b].SumGradients
			parent.Features[f][b].SumHessians -= smaller.Features[f][b].SumHessians
		}
	}
}
