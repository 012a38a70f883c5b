package bin

import "github.com/wlattner/gbt/table"

// Matrix is the sum-typed handle over the two binned-feature layouts so
// downstream components (bin-stats, split chooser) dispatch once per grid
// item rather than branching on layout throughout.
type Matrix interface {
	NRows() int
	NFeatures() int
	NBins(feature int) int
	Bin(row, feature int) int
}

// column is a feature's bin-index storage, sized to fit its bin count (u8
// when n_bins <= 256, u16 otherwise) per §4.2.
type column interface {
	get(row int) int
	set(row, v int)
}

type u8Column []uint8

func (c u8Column) get(row int) int  { return int(c[row]) }
func (c u8Column) set(row, v int)   { c[row] = uint8(v) }

type u16Column []uint16

func (c u16Column) get(row int) int { return int(c[row]) }
func (c u16Column) set(row, v int)  { c[row] = uint16(v) }

func newColumn(nRows, nBins int) column {
	if nBins <= 256 {
		return make(u8Column, nRows)
	}
	return make(u16Column, nRows)
}

// ColumnMajor stores one contiguous array per feature. Preferred when
// split-search parallelism over features is the goal.
type ColumnMajor struct {
	cols     []column
	nBins    []int
	nRows    int
	nFeatures int
}

// NewColumnMajor bins t according to instructions into column-major layout.
func NewColumnMajor(t *table.Table, instructions []Instruction) *ColumnMajor {
	m := &ColumnMajor{
		nRows:     t.NRows,
		nFeatures: len(instructions),
		cols:      make([]column, len(instructions)),
		nBins:     make([]int, len(instructions)),
	}

	for f, ins := range instructions {
		nBins := ins.NBins()
		m.nBins[f] = nBins
		col := newColumn(t.NRows, nBins)

		tc := t.Columns[f]
		for r := 0; r < t.NRows; r++ {
			var b int
			switch ins.Kind {
			case Number:
				b = ins.BinNumber(tc.Numbers[r])
			case Enum:
				b = ins.BinEnum(tc.EnumValue(r))
			}
			col.set(r, b)
		}
		m.cols[f] = col
	}

	return m
}

func (m *ColumnMajor) NRows() int            { return m.nRows }
func (m *ColumnMajor) NFeatures() int        { return m.nFeatures }
func (m *ColumnMajor) NBins(feature int) int { return m.nBins[feature] }
func (m *ColumnMajor) Bin(row, feature int) int {
	return m.cols[feature].get(row)
}

// Column exposes the raw per-row bin indices for one feature, letting the
// bin-stats engine read sequentially instead of through the Matrix
// interface's per-call dispatch.
func (m *ColumnMajor) Column(feature int) func(row int) int {
	c := m.cols[feature]
	return c.get
}

// RowMajor stores one matrix of rows x features with a global offset per
// feature so bin_stats[values[row*nFeatures+feature]] indexes a single flat
// array. Preferred when bin-stats memory bandwidth dominates.
type RowMajor struct {
	offsets   []int // offsets[f] is the global-bin-id base for feature f
	values    []uint32
	nRows     int
	nFeatures int
	nBins     []int
}

// NewRowMajor bins t according to instructions into row-major layout.
func NewRowMajor(t *table.Table, instructions []Instruction) *RowMajor {
	m := &RowMajor{
		nRows:     t.NRows,
		nFeatures: len(instructions),
		nBins:     make([]int, len(instructions)),
		offsets:   make([]int, len(instructions)+1),
	}

	total := 0
	for f, ins := range instructions {
		m.nBins[f] = ins.NBins()
		m.offsets[f] = total
		total += m.nBins[f]
	}
	m.offsets[len(instructions)] = total

	m.values = make([]uint32, t.NRows*len(instructions))
	for f, ins := range instructions {
		tc := t.Columns[f]
		off := m.offsets[f]
		for r := 0; r < t.NRows; r++ {
			var b int
			switch ins.Kind {
			case Number:
				b = ins.BinNumber(tc.Numbers[r])
			case Enum:
				b = ins.BinEnum(tc.EnumValue(r))
			}
			m.values[r*m.nFeatures+f] = uint32(off + b)
		}
	}

	return m
}

func (m *RowMajor) NRows() int            { return m.nRows }
func (m *RowMajor) NFeatures() int        { return m.nFeatures }
func (m *RowMajor) NBins(feature int) int { return m.nBins[feature] }
func (m *RowMajor) Bin(row, feature int) int {
	return int(m.values[row*m.nFeatures+feature]) - m.offsets[feature]
}

// GlobalBin returns the flat global bin id for (row, feature), used by the
// row-major bin-stats path to index a single Σn_bins-sized accumulator.
func (m *RowMajor) GlobalBin(row, feature int) int {
	return int(m.values[row*m.nFeatures+feature])
}

// Offset returns the global-bin-id base for feature, i.e. Offset(f+1) -
// Offset(f) == NBins(f).
func (m *RowMajor) Offset(feature int) int { return m.offsets[feature] }

// TotalBins returns Σ n_bins_f, the size of the global flat bin-stats array.
func (m *RowMajor) TotalBins() int { return m.offsets[m.nFeatures] }
