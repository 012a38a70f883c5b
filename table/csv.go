package table

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// parseFloat wraps strconv.ParseFloat with an ok-boolean, the shape this
// package uses to detect header rows and column kinds.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// formatNumber renders a float64 back to the string a KindEnum column would
// have stored it as, for ApplyColumnTypes' number->enum direction.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LoadCSV reads r as a CSV file, auto-detecting a header row: the first row
// is a header if and only if at least one of its values fails to parse as a
// float64. Columns default to "X1".."Xn" when no header row is present.
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv input")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading first row")
	}

	hasHeader := false
	for _, v := range first {
		if _, ok := parseFloat(v); !ok {
			hasHeader = true
			break
		}
	}

	var names []string
	nCols := len(first)
	if hasHeader {
		names = append(names, first...)
	} else {
		for i := 0; i < nCols; i++ {
			names = append(names, columnDefaultName(i))
		}
	}

	raw := make([][]string, nCols)
	nRows := 0

	if !hasHeader {
		for c, v := range first {
			raw[c] = append(raw[c], v)
		}
		nRows++
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading row")
		}
		if len(row) != nCols {
			return nil, errors.Errorf("row %d has %d columns, want %d", nRows, len(row), nCols)
		}
		for c, v := range row {
			raw[c] = append(raw[c], v)
		}
		nRows++
	}

	return finalize(raw, names, nRows), nil
}

func columnDefaultName(i int) string {
	return "X" + strconv.Itoa(i+1)
}
