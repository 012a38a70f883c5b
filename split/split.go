// Package split implements the split chooser (§4.4): from bin stats,
// compute the highest-gain continuous or discrete split for every
// splittable feature, subject to the node-size and node-hessian budgets.
package split

import (
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/wlattner/gbt/bin"
	"github.com/wlattner/gbt/binstats"
	"github.com/wlattner/gbt/internal/workerpool"
)

// Direction is which side of a split an example's bin falls on.
type Direction int

const (
	Left Direction = iota
	Right
)

// Continuous is a split on a Number feature.
type Continuous struct {
	BinIndex         int // row goes left iff bin < BinIndex
	SplitValue       float32
	InvalidDirection Direction // always Left, per §9 design note
}

// Discrete is a split on an Enum feature.
type Discrete struct {
	Directions *bitset.BitSet // bit set means Left
	NBins      int
}

// Result is the chosen split for one node, or nil if no feature produced an
// admissible candidate.
type Result struct {
	Feature    int
	Gain       float64
	Continuous *Continuous
	Discrete   *Discrete

	SumGradientsLeft, SumHessiansLeft   float64
	SumGradientsRight, SumHessiansRight float64
}

// Options bundles the budget constants and regularization weights the
// chooser needs; these flow from gbt.TrainOptions.
type Options struct {
	MinExamplesPerNode        int
	MinSumHessiansPerNode     float64
	L2RegularizationContinuous float64
	L2RegularizationDiscrete   float64
	SmoothingFactorDiscrete    float64
	NWorkers                   int
}

// negLoss is the gain formula's per-side term: G^2 / (H + lambda).
func negLoss(g, h, lambda float64) float64 {
	return (g * g) / (h + lambda)
}

// Gain computes the standard GBDT split-gain formula.
func Gain(gl, hl, gr, hr, gp, hp, lambda float64) float64 {
	return negLoss(gl, hl, lambda) + negLoss(gr, hr, lambda) - negLoss(gp, hp, lambda)
}

// featureResult is one feature's local best candidate plus whether it found
// any admissible split at all (used to update the splittable-features mask
// for children).
type featureResult struct {
	best        *Result
	hadCandidate bool
}

// Best chooses the highest-gain split across every feature marked
// splittable, and returns the updated splittable mask for this node's
// children (a feature remains splittable below a node only if it produced
// an admissible split here).
func Best(stats *binstats.Stats, instructions []bin.Instruction, gParent, hParent float64, nParent int, splittable []bool, opt Options) (*Result, []bool) {
	nFeatures := len(instructions)
	results := make([]featureResult, nFeatures)

	workerpool.Run(nFeatures, opt.NWorkers, func(f int) {
		if !splittable[f] {
			return
		}
		entries := stats.Features[f]
		switch instructions[f].Kind {
		case bin.Number:
			r, had := bestContinuous(f, entries, instructions[f], gParent, hParent, nParent, opt)
			results[f] = featureResult{r, had}
		case bin.Enum:
			r, had := bestDiscrete(f, entries, gParent, hParent, nParent, opt)
			results[f] = featureResult{r, had}
		}
	})

	childSplittable := make([]bool, nFeatures)
	var best *Result
	for f := 0; f < nFeatures; f++ {
		childSplittable[f] = splittable[f] && results[f].hadCandidate
		if results[f].best == nil {
			continue
		}
		// strictly-greater keeps the earliest feature index on ties,
		// matching the original source's choose_split_with_highest_gain.
		if best == nil || results[f].best.Gain > best.Gain {
			best = results[f].best
		}
	}

	return best, childSplittable
}

func approxCount(h, nParent, hParent float64) int {
	if hParent <= 0 {
		return 0
	}
	return int(math.Round(h * float64(nParent) / hParent))
}

func bestContinuous(feature int, entries []binstats.Entry, ins bin.Instruction, gParent, hParent float64, nParent int, opt Options) (*Result, bool) {
	nBins := len(entries)
	if nBins < 3 {
		// only the invalid bin and a single valid bin: no threshold to
		// split on.
		return nil, false
	}

	lambda := opt.L2RegularizationContinuous

	// bin 0 (invalid) is preloaded to the left, invalid_direction = Left.
	leftG := entries[0].SumGradients
	leftH := entries[0].SumHessians

	var best *Result
	had := false

	for k := 1; k < nBins-1; k++ {
		leftG += entries[k].SumGradients
		leftH += entries[k].SumHessians

		rightG := gParent - leftG
		rightH := hParent - leftH

		leftApprox := approxCount(leftH, nParent, hParent)
		rightApprox := nParent - leftApprox

		if leftApprox < opt.MinExamplesPerNode {
			continue
		}
		if rightApprox < opt.MinExamplesPerNode {
			break
		}
		if leftH < opt.MinSumHessiansPerNode {
			continue
		}
		if rightH < opt.MinSumHessiansPerNode {
			break
		}

		had = true
		gain := Gain(leftG, leftH, rightG, rightH, gParent, hParent, lambda)
		if best == nil || gain > best.Gain {
			splitVal := ins.Thresholds[k-1]
			best = &Result{
				Feature: feature,
				Gain:    gain,
				Continuous: &Continuous{
					BinIndex:         k + 1,
					SplitValue:       splitVal,
					InvalidDirection: Left,
				},
				SumGradientsLeft:  leftG,
				SumHessiansLeft:   leftH,
				SumGradientsRight: rightG,
				SumHessiansRight:  rightH,
			}
		}
	}

	return best, had
}

type scoredBin struct {
	bin   int
	score float64
}

func bestDiscrete(feature int, entries []binstats.Entry, gParent, hParent float64, nParent int, opt Options) (*Result, bool) {
	nBins := len(entries)
	if nBins < 2 {
		return nil, false
	}

	lambda := opt.L2RegularizationDiscrete
	smoothing := opt.SmoothingFactorDiscrete

	scored := make([]scoredBin, nBins)
	for b, e := range entries {
		scored[b] = scoredBin{b, e.SumGradients / (e.SumHessians + smoothing)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score < scored[j].score })

	directions := bitset.New(uint(nBins))
	var best *Result
	had := false

	var leftG, leftH float64
	for i := 0; i < nBins-1; i++ {
		b := scored[i].bin
		leftG += entries[b].SumGradients
		leftH += entries[b].SumHessians
		directions.Set(uint(b))

		rightG := gParent - leftG
		rightH := hParent - leftH

		leftApprox := approxCount(leftH, nParent, hParent)
		rightApprox := nParent - leftApprox

		if leftApprox < opt.MinExamplesPerNode {
			continue
		}
		if rightApprox < opt.MinExamplesPerNode {
			break
		}
		if leftH < opt.MinSumHessiansPerNode {
			continue
		}
		if rightH < opt.MinSumHessiansPerNode {
			break
		}

		had = true
		gain := Gain(leftG, leftH, rightG, rightH, gParent, hParent, lambda)
		if best == nil || gain > best.Gain {
			best = &Result{
				Feature: feature,
				Gain:    gain,
				Discrete: &Discrete{
					Directions: directions.Clone(),
					NBins:      nBins,
				},
				SumGradientsLeft:  leftG,
				SumHessiansLeft:   leftH,
				SumGradientsRight: rightG,
				SumHessiansRight:  rightH,
			}
		}
	}

	return best, had
}

// Route reports which side of the split an example's bin falls on.
func (c *Continuous) Route(binIdx int) Direction {
	if binIdx == 0 {
		return c.InvalidDirection
	}
	if binIdx < c.BinIndex {
		return Left
	}
	return Right
}

// Route reports which side of the split an example's bin falls on.
func (d *Discrete) Route(binIdx int) Direction {
	if d.Directions.Test(uint(binIdx)) {
		return Left
	}
	return Right
}
