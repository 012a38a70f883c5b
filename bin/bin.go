// Package bin computes per-column binning instructions and materializes the
// binned feature matrix the rest of the GBDT trainer operates on (§4.1-4.2).
package bin

import (
	"math"
	"sort"

	"github.com/wlattner/gbt/table"
)

// Kind distinguishes the two binning-instruction shapes.
type Kind int

const (
	Number Kind = iota
	Enum
)

// Instruction is one column's binning rule. For Number columns, bin 0 is
// reserved for invalid/NaN values, bin i+1 holds values <= Thresholds[i],
// and the last bin holds the tail above the final threshold. For Enum
// columns, bin 0 is invalid/unknown and bin i+1 holds variant i.
type Instruction struct {
	Kind       Kind
	Thresholds []float32 // Number only, ascending, deduplicated
	NVariants  int       // Enum only
}

// NBins returns the instruction's total bin count: Thresholds+2 for Number,
// NVariants+1 for Enum.
func (ins Instruction) NBins() int {
	if ins.Kind == Number {
		return len(ins.Thresholds) + 2
	}
	return ins.NVariants + 1
}

// BinNumber maps a raw float64 to a bin index under a Number instruction.
func (ins Instruction) BinNumber(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	// bin i+1 holds values <= Thresholds[i]; the first threshold at or
	// above v wins via a linear scan (thresholds are few: <= MaxValidBins-1).
	for i, t := range ins.Thresholds {
		if v <= float64(t) {
			return i + 1
		}
	}
	return len(ins.Thresholds) + 1
}

// BinEnum maps a variant index (-1 for invalid/unknown) to a bin index
// under an Enum instruction.
func (ins Instruction) BinEnum(variantIdx int) int {
	if variantIdx < 0 {
		return 0
	}
	return variantIdx + 1
}

// DefaultMaxExamplesForThresholds caps how many sample rows are used to
// estimate Number-column quantile thresholds.
const DefaultMaxExamplesForThresholds = 200_000

// DefaultMaxValidBinsForNumberFeatures caps the bin count of a Number
// column; it must fit in a byte plus the invalid bin, so it is capped at
// 255.
const DefaultMaxValidBinsForNumberFeatures = 255

// Compute builds one Instruction per column of t.
func Compute(t *table.Table, maxExamples, maxValidBins int) []Instruction {
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamplesForThresholds
	}
	if maxValidBins <= 0 || maxValidBins > 255 {
		maxValidBins = DefaultMaxValidBinsForNumberFeatures
	}

	out := make([]Instruction, len(t.Columns))
	for i, col := range t.Columns {
		switch col.Kind {
		case table.KindNumber:
			out[i] = computeNumber(col.Numbers, maxExamples, maxValidBins)
		case table.KindEnum:
			out[i] = Instruction{Kind: Enum, NVariants: len(col.Variants)}
		}
	}
	return out
}

func computeNumber(values []float64, maxExamples, maxValidBins int) Instruction {
	var finite []float64
	for _, v := range values {
		if !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}

	if len(finite) == 0 {
		// zero finite values: 2-bin instruction, invalid + everything else
		return Instruction{Kind: Number, Thresholds: nil}
	}

	sort.Float64s(finite)

	sample := finite
	if len(sample) > maxExamples {
		// deterministic stride sample rather than a PRNG draw, so
		// threshold computation needs no seed of its own; sorted input
		// means a stride preserves the overall distribution shape.
		stride := float64(len(sample)) / float64(maxExamples)
		strided := make([]float64, 0, maxExamples)
		for i := 0; i < maxExamples; i++ {
			strided = append(strided, sample[int(float64(i)*stride)])
		}
		sample = strided
	}

	nUnique := countUnique(sample)
	nThresholds := nUnique - 1
	if nThresholds > maxValidBins-1 {
		nThresholds = maxValidBins - 1
	}
	if nThresholds < 0 {
		nThresholds = 0
	}

	thresholds := evenlySpacedQuantiles(sample, nThresholds)
	thresholds = dedupeAdjacent(thresholds)

	f32 := make([]float32, len(thresholds))
	for i, t := range thresholds {
		f32[i] = float32(t)
	}

	return Instruction{Kind: Number, Thresholds: f32}
}

func countUnique(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	n := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			n++
		}
	}
	return n
}

// evenlySpacedQuantiles picks n thresholds evenly spaced through sorted
// (already sorted ascending), using the empirical quantile at fraction
// (i+1)/(n+1) for i in [0, n).
func evenlySpacedQuantiles(sorted []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	last := len(sorted) - 1
	for i := 0; i < n; i++ {
		frac := float64(i+1) / float64(n+1)
		pos := frac * float64(last)
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi > last {
			hi = last
		}
		if lo == hi {
			out[i] = sorted[lo]
		} else {
			w := pos - float64(lo)
			out[i] = sorted[lo]*(1-w) + sorted[hi]*w
		}
	}
	return out
}

func dedupeAdjacent(thresholds []float64) []float64 {
	if len(thresholds) == 0 {
		return thresholds
	}
	out := thresholds[:1]
	for _, t := range thresholds[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
