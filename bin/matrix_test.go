package bin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlattner/gbt/table"
)

func testTable() *table.Table {
	return &table.Table{
		NRows: 4,
		Columns: []table.Column{
			{Name: "num", Kind: table.KindNumber, Numbers: []float64{1, 2, 3, 4}},
			{Name: "cat", Kind: table.KindEnum, Raw: []string{"a", "b", "a", "b"}, Variants: []string{"a", "b"}, VariantIndex: map[string]int{"a": 0, "b": 1}},
		},
	}
}

func TestColumnMajorBinsMatchInstructions(t *testing.T) {
	tbl := testTable()
	instructions := Compute(tbl, 0, 0)
	m := NewColumnMajor(tbl, instructions)

	require.Equal(t, 4, m.NRows())
	require.Equal(t, 2, m.NFeatures())

	for f, ins := range instructions {
		for r := 0; r < tbl.NRows; r++ {
			var want int
			switch ins.Kind {
			case Number:
				want = ins.BinNumber(tbl.Columns[f].Numbers[r])
			case Enum:
				want = ins.BinEnum(tbl.Columns[f].EnumValue(r))
			}
			assert.Equal(t, want, m.Bin(r, f))
		}
	}
}

func TestRowMajorGlobalBinRoundTrips(t *testing.T) {
	tbl := testTable()
	instructions := Compute(tbl, 0, 0)
	m := NewRowMajor(tbl, instructions)

	for f := 0; f < m.NFeatures(); f++ {
		for r := 0; r < tbl.NRows; r++ {
			local := m.Bin(r, f)
			global := m.GlobalBin(r, f)
			assert.Equal(t, global, m.Offset(f)+local)
		}
	}
	assert.Equal(t, m.TotalBins(), m.Offset(m.NFeatures()))
}

func TestColumnMajorAndRowMajorAgree(t *testing.T) {
	tbl := testTable()
	instructions := Compute(tbl, 0, 0)
	cm := NewColumnMajor(tbl, instructions)
	rm := NewRowMajor(tbl, instructions)

	for f := 0; f < cm.NFeatures(); f++ {
		for r := 0; r < tbl.NRows; r++ {
			assert.Equal(t, cm.Bin(r, f), rm.Bin(r, f))
		}
	}
}
