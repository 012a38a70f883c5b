package gbt

import (
	"container/heap"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/binstats"
	"github.com/wlattner/gbt/internal/killchip"
	"github.com/wlattner/gbt/split"
)

// TrainOptions configures one tree's growth; most fields come directly from
// the distilled spec's named budgets and regularization constants.
type TrainOptions struct {
	MaxDepth                          int // -1: unlimited
	MaxLeafNodes                      int
	MinExamplesPerNode                int
	MinSumHessiansPerNode             float64
	MinGainToSplit                    float64
	L2RegularizationContinuousSplits  float64
	L2RegularizationDiscreteSplits    float64
	SmoothingFactorDiscreteBinSorting float64
	LearningRate                      float64
	NWorkers                          int
	// Deterministic forces single-threaded bin-stats reduction so tests
	// get bit-identical results regardless of GOMAXPROCS, per §9's
	// floating-point-determinism design note.
	Deterministic bool
}

// DefaultTrainOptions matches the values the grid orchestrator falls back
// to when a config grid item doesn't override them.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		MaxDepth:                          -1,
		MaxLeafNodes:                      31,
		MinExamplesPerNode:                20,
		MinSumHessiansPerNode:             10,
		MinGainToSplit:                    0,
		L2RegularizationContinuousSplits:  0,
		L2RegularizationDiscreteSplits:    0,
		SmoothingFactorDiscreteBinSorting: 10,
		LearningRate:                      0.1,
		NWorkers:                          1,
	}
}

func (o TrainOptions) workers() int {
	if o.Deterministic {
		return 1
	}
	if o.NWorkers < 1 {
		return 1
	}
	return o.NWorkers
}

// FeatureGain accumulates per-feature split-gain totals for variable
// importance; Fit returns one, and the ensemble sums them across
// rounds (§4.6: "per-feature importances accumulate across rounds
// proportional to split gains, normalized at the end").
type FeatureGain []float64

type pendingNode struct {
	node         *Node
	exampleIndex []int
	depth        int
	splittable   []bool
	sumGradients float64
	sumHessians  float64
	stats        *binstats.Stats // this node's own bin stats, needed for sibling subtraction when it expands
	best         *split.Result   // nil if this node cannot be split further
	index        int             // heap bookkeeping
}

// pendingHeap is a max-heap on best.Gain; nodes with no candidate split
// (best == nil) never enter the heap.
type pendingHeap []*pendingNode

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool {
	return h[i].best.Gain > h[j].best.Gain
}
func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *pendingHeap) Push(x interface{}) {
	n := x.(*pendingNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Fit grows one tree leaf-wise over matrix using gradients/hessians aligned
// with matrix rows, returning the root node and per-feature gain totals for
// variable importance.
func Fit(matrix bin.Matrix, instructions []bin.Instruction, gradients, hessians []float32, constantHessian bool, opt TrainOptions, kill *killchip.Chip) (*Node, FeatureGain) {
	nFeatures := matrix.NFeatures()
	featureGain := make(FeatureGain, nFeatures)

	splitOpt := split.Options{
		MinExamplesPerNode:         opt.MinExamplesPerNode,
		MinSumHessiansPerNode:      opt.MinSumHessiansPerNode,
		L2RegularizationContinuous: opt.L2RegularizationContinuousSplits,
		L2RegularizationDiscrete:   opt.L2RegularizationDiscreteSplits,
		SmoothingFactorDiscrete:    opt.SmoothingFactorDiscreteBinSorting,
		NWorkers:                   opt.workers(),
	}

	exampleIndex := make([]int, matrix.NRows())
	for i := range exampleIndex {
		exampleIndex[i] = i
	}

	rootSplittable := make([]bool, nFeatures)
	for i := range rootSplittable {
		rootSplittable[i] = true
	}

	// pool holds every node's bin-stats buffer for this tree's growth: a
	// node checks one out before its stats are computed and it is returned
	// once the node either fails to expand or is subsumed into its larger
	// sibling's buffer via SubtractInPlace.
	pool := binstats.NewPoolForMatrix(matrix)

	rootStats := binstats.ComputeRootPooled(pool, matrix, gradients, hessians, constantHessian, splitOpt.NWorkers)
	sumG, sumH := totalGradHess(rootStats)

	root := &Node{}
	leafValue(root, sumG, sumH, opt)

	pq := &pendingHeap{}
	heap.Init(pq)

	nLeaves := 1

	tryEnqueue := func(node *Node, idx []int, depth int, splittable []bool, sumG, sumH float64, stats *binstats.Stats) {
		if !canExpand(depth, len(idx), sumH, opt, nLeaves) {
			pool.Put(stats)
			return
		}
		best, childSplittable := split.Best(stats, instructions, sumG, sumH, len(idx), splittable, splitOpt)
		if best == nil || best.Gain < opt.MinGainToSplit {
			pool.Put(stats)
			return
		}
		heap.Push(pq, &pendingNode{
			node: node, exampleIndex: idx, depth: depth,
			splittable: childSplittable, sumGradients: sumG, sumHessians: sumH,
			stats: stats, best: best,
		})
	}

	tryEnqueue(root, exampleIndex, 0, rootSplittable, sumG, sumH, rootStats)

	for pq.Len() > 0 {
		if kill.IsTripped() {
			break
		}

		w := heap.Pop(pq).(*pendingNode)
		n := w.node
		best := w.best

		if nLeaves+1 > opt.MaxLeafNodes {
			pool.Put(w.stats)
			break
		}

		featureGain[best.Feature] += best.Gain

		left, right := partition(matrix, w.exampleIndex, best)

		n.Leaf = false
		n.Feature = best.Feature
		n.Continuous = best.Continuous
		n.Discrete = best.Discrete
		n.Left = &Node{}
		n.Right = &Node{}

		smallerIsLeft := len(left) <= len(right)

		var smallerIdx []int
		var smallerStats *binstats.Stats
		if smallerIsLeft {
			smallerIdx = left
		} else {
			smallerIdx = right
		}
		smallerStats = binstats.ComputeForNodePooled(pool, matrix, smallerIdx, gradients, hessians, constantHessian, splitOpt.NWorkers)

		leftSumG, leftSumH := best.SumGradientsLeft, best.SumHessiansLeft
		rightSumG, rightSumH := best.SumGradientsRight, best.SumHessiansRight

		leafValue(n.Left, leftSumG, leftSumH, opt)
		leafValue(n.Right, rightSumG, rightSumH, opt)

		nLeaves++ // this node stops being a leaf; two new leaves appear, net +1

		// larger child's stats via sibling subtraction: the parent's own
		// buffer (already checked out when it was enqueued) becomes the
		// larger child's buffer in place, per §4.5/§9 — no extra allocation
		// and no separate Put, since ownership passes straight through.
		binstats.SubtractInPlace(w.stats, smallerStats)
		largerStats := w.stats

		if smallerIsLeft {
			tryEnqueue(n.Left, left, w.depth+1, w.splittable, leftSumG, leftSumH, smallerStats)
			tryEnqueue(n.Right, right, w.depth+1, w.splittable, rightSumG, rightSumH, largerStats)
		} else {
			tryEnqueue(n.Right, right, w.depth+1, w.splittable, rightSumG, rightSumH, smallerStats)
			tryEnqueue(n.Left, left, w.depth+1, w.splittable, leftSumG, leftSumH, largerStats)
		}
	}

	// any node still queued when growth stopped early (kill chip tripped,
	// or the leaf budget was hit) never gets expanded, so its buffer is
	// never passed to SubtractInPlace or Put by the loop above — return
	// them here so nothing outlives this call.
	for pq.Len() > 0 {
		w := heap.Pop(pq).(*pendingNode)
		pool.Put(w.stats)
	}

	return root, featureGain
}

func canExpand(depth, n int, sumH float64, opt TrainOptions, nLeaves int) bool {
	if opt.MaxDepth >= 0 && depth >= opt.MaxDepth {
		return false
	}
	if n < 2*opt.MinExamplesPerNode {
		return false
	}
	if sumH < 2*opt.MinSumHessiansPerNode {
		return false
	}
	if nLeaves+1 > opt.MaxLeafNodes {
		return false
	}
	return true
}

func leafValue(n *Node, g, h float64, opt TrainOptions) {
	n.Leaf = true
	lambda := opt.L2RegularizationContinuousSplits
	n.Value = float32(-g / (h + lambda) * opt.LearningRate)
}

func totalGradHess(s *binstats.Stats) (float64, float64) {
	if len(s.Features) == 0 {
		return 0, 0
	}
	var g, h float64
	for _, e := range s.Features[0] {
		g += e.SumGradients
		h += e.SumHessians
	}
	return g, h
}

// partition splits idx in place by the chosen split's routing rule, using
// an in-place two-pointer partition over a bin-index/bitset predicate.
func partition(matrix bin.Matrix, idx []int, best *split.Result) (left, right []int) {
	i, j := 0, len(idx)
	for i < j {
		b := matrix.Bin(idx[i], best.Feature)
		var isLeft bool
		if best.Continuous != nil {
			isLeft = best.Continuous.Route(b) == split.Left
		} else {
			isLeft = best.Discrete.Route(b) == split.Left
		}
		if isLeft {
			i++
		} else {
			j--
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	return idx[:i], idx[i:]
}

func normalize(fg FeatureGain) {
	total := 0.0
	for _, g := range fg {
		total += g
	}
	if total <= 0 {
		return
	}
	for i := range fg {
		fg[i] /= total
	}
}
