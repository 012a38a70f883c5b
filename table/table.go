// Package table implements the CSV loader and column-type inference: the
// same header-detection-by-float-parse-failure trick, generalized from "is
// the label column numeric" to "is this column numeric" across every column.
package table

import (
	"math"

	"github.com/pkg/errors"
)

// Kind is the inferred type of a column.
type Kind int

const (
	// KindNumber means every non-blank value in the column parsed as a
	// float64; NaN marks an invalid/missing value.
	KindNumber Kind = iota
	// KindEnum means at least one value failed to parse as a float64;
	// the column is treated as a categorical variable over its distinct
	// string values.
	KindEnum
)

// Column holds one column's values in both possible representations. Only
// the slice matching Kind is populated with real data; the unused slice is
// left nil.
type Column struct {
	Name string
	Kind Kind

	// Numbers holds one entry per row for KindNumber columns. NaN marks
	// a blank or unparseable value.
	Numbers []float64

	// Raw holds one entry per row for KindEnum columns, plus the
	// ordered list of distinct values seen (Variants) and a lookup from
	// value to variant index (VariantIndex). Variant index -1 marks a
	// blank/invalid value.
	Raw          []string
	Variants     []string
	VariantIndex map[string]int
}

// Table is a set of named, equal-length columns.
type Table struct {
	Columns []Column
	NRows   int
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// EnumValue returns the variant index for row i of an enum column, or -1 if
// the value is invalid/blank.
func (c *Column) EnumValue(i int) int {
	v := c.Raw[i]
	if idx, ok := c.VariantIndex[v]; ok {
		return idx
	}
	return -1
}

// IsInvalidNumber reports whether v represents a missing/invalid numeric
// value (NaN), the convention used throughout the binning and stats
// pipeline.
func IsInvalidNumber(v float64) bool {
	return math.IsNaN(v)
}

// ApplyColumnTypes overrides t's inferred column kinds per overrides (column
// name -> "number" | "enum"), for the columns auto-detection gets wrong: a
// numeric-looking categorical code column ("zip_code") forced to "enum", or
// an enum column of all-numeric strings forced to "number". Columns not
// named in overrides keep their inferred kind.
func ApplyColumnTypes(t *Table, overrides map[string]string) error {
	for name, kind := range overrides {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return errors.Errorf("column_types: column %q not found", name)
		}
		col := &t.Columns[idx]
		switch kind {
		case "number":
			if col.Kind == KindNumber {
				continue
			}
			nums := make([]float64, t.NRows)
			for r, s := range col.Raw {
				if s == "" {
					nums[r] = math.NaN()
					continue
				}
				f, ok := parseFloat(s)
				if !ok {
					return errors.Errorf("column_types: column %q has non-numeric value %q, cannot force to number", name, s)
				}
				nums[r] = f
			}
			*col = Column{Name: col.Name, Kind: KindNumber, Numbers: nums}
		case "enum":
			if col.Kind == KindEnum {
				continue
			}
			raw := make([]string, t.NRows)
			variants := make([]string, 0)
			index := make(map[string]int)
			for r, v := range col.Numbers {
				if math.IsNaN(v) {
					raw[r] = ""
					continue
				}
				s := formatNumber(v)
				raw[r] = s
				if _, ok := index[s]; !ok {
					index[s] = len(variants)
					variants = append(variants, s)
				}
			}
			*col = Column{Name: col.Name, Kind: KindEnum, Raw: raw, Variants: variants, VariantIndex: index}
		default:
			return errors.Errorf("column_types: column %q has unrecognized type %q, want \"number\" or \"enum\"", name, kind)
		}
	}
	return nil
}

// finalize converts each column's raw string values into Numbers (if every
// non-blank value parses as a float) or leaves it as KindEnum otherwise, and
// builds the enum variant table in order of first appearance.
func finalize(raw [][]string, names []string, nRows int) *Table {
	t := &Table{NRows: nRows}
	nCols := len(names)
	t.Columns = make([]Column, nCols)

	for c := 0; c < nCols; c++ {
		col := Column{Name: names[c]}
		allNumeric := true
		nums := make([]float64, nRows)
		for r := 0; r < nRows; r++ {
			s := raw[c][r]
			if s == "" {
				nums[r] = math.NaN()
				continue
			}
			f, ok := parseFloat(s)
			if !ok {
				allNumeric = false
				break
			}
			nums[r] = f
		}

		if allNumeric {
			col.Kind = KindNumber
			col.Numbers = nums
			t.Columns[c] = col
			continue
		}

		col.Kind = KindEnum
		col.Raw = raw[c]
		col.VariantIndex = make(map[string]int)
		for r := 0; r < nRows; r++ {
			s := raw[c][r]
			if s == "" {
				continue
			}
			if _, ok := col.VariantIndex[s]; !ok {
				col.VariantIndex[s] = len(col.Variants)
				col.Variants = append(col.Variants, s)
			}
		}
		t.Columns[c] = col
	}

	return t
}
