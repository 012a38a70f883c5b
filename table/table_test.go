package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSVDetectsHeaderByParseFailure(t *testing.T) {
	csv := "age,color,label\n1,red,yes\n2,blue,no\n3,red,yes\n"
	tbl, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	require.Equal(t, 3, len(tbl.Columns))
	assert.Equal(t, "age", tbl.Columns[0].Name)
	assert.Equal(t, KindNumber, tbl.Columns[0].Kind)
	assert.Equal(t, KindEnum, tbl.Columns[1].Kind)
	assert.Equal(t, []string{"red", "blue"}, tbl.Columns[1].Variants)
}

func TestLoadCSVWithoutHeaderUsesDefaultNames(t *testing.T) {
	csv := "1,2\n3,4\n"
	tbl, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "X1", tbl.Columns[0].Name)
	assert.Equal(t, "X2", tbl.Columns[1].Name)
	assert.Equal(t, 2, tbl.NRows)
}

func TestLoadCSVBlankValuesAreInvalid(t *testing.T) {
	csv := "a,b\n1,\n,3\n"
	tbl, err := LoadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	assert.True(t, IsInvalidNumber(tbl.Columns[1].Numbers[0]))
	assert.True(t, IsInvalidNumber(tbl.Columns[0].Numbers[1]))
}

func TestLoadCSVRejectsRaggedRows(t *testing.T) {
	csv := "a,b\n1,2\n3\n"
	_, err := LoadCSV(strings.NewReader(csv))
	assert.Error(t, err)
}

func TestColumnIndex(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("x,y\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.ColumnIndex("x"))
	assert.Equal(t, 1, tbl.ColumnIndex("y"))
	assert.Equal(t, -1, tbl.ColumnIndex("z"))
}

func TestEnumValueInvalidIsNegativeOne(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("c,n\nred,1\n,2\nblue,3\n"))
	require.NoError(t, err)
	col := tbl.Columns[0]
	assert.Equal(t, 0, col.EnumValue(0))
	assert.Equal(t, -1, col.EnumValue(1))
	assert.Equal(t, 1, col.EnumValue(2))
}

func TestApplyColumnTypesForcesNumberToEnum(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("zip\n90210\n10001\n90210\n"))
	require.NoError(t, err)
	require.Equal(t, KindNumber, tbl.Columns[0].Kind)

	err = ApplyColumnTypes(tbl, map[string]string{"zip": "enum"})
	require.NoError(t, err)
	assert.Equal(t, KindEnum, tbl.Columns[0].Kind)
	assert.ElementsMatch(t, []string{"90210", "10001"}, tbl.Columns[0].Variants)
}

func TestApplyColumnTypesRejectsNonNumericEnumToNumber(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("code\n1\n2\nred\n"))
	require.NoError(t, err)
	require.Equal(t, KindEnum, tbl.Columns[0].Kind)

	err = ApplyColumnTypes(tbl, map[string]string{"code": "number"})
	assert.Error(t, err)
}

func TestApplyColumnTypesUnknownColumn(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader("a\n1\n"))
	require.NoError(t, err)
	err = ApplyColumnTypes(tbl, map[string]string{"missing": "enum"})
	assert.Error(t, err)
}
