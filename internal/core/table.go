package core

import "strings"

// Table is a raw spreadsheet: a header row and string cells.
// Readers produce it; the normalizer and target loader consume it.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// NewTable builds a table from a values matrix whose first row is the header.
func NewTable(name string, values [][]string) Table {
	t := Table{Name: name}
	if len(values) == 0 {
		return t
	}
	t.Columns = append([]string(nil), values[0]...)
	for _, row := range values[1:] {
		if isBlankRow(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Index returns the position of an exact column name, or -1.
func (t Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether an exact column name exists.
func (t Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// Cell returns the value at row i for column index c, or "" when out of range.
func (t Table) Cell(i, c int) string {
	if i < 0 || i >= len(t.Rows) || c < 0 || c >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][c]
}

// TrimColumns strips whitespace around every column name.
func (t *Table) TrimColumns() {
	for i, c := range t.Columns {
		t.Columns[i] = strings.TrimSpace(c)
	}
}

// Rename renames columns per the given mapping. Missing sources are ignored.
func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.Columns {
		if to, ok := mapping[c]; ok {
			t.Columns[i] = to
		}
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
