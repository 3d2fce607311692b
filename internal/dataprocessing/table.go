package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header plus string rows read from a CSV file or a workbook sheet
type Table struct {
	Source string
	Sheet  string
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table from a raw header and rows, normalizing the header
func NewTable(source string, header []string, rows [][]string) *Table {
	t := &Table{
		Source: source,
		Header: make([]string, len(header)),
		Rows:   rows,
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := NormalizeHeader(h)
		t.Header[i] = name
		if _, dup := t.index[name]; !dup && name != "" {
			t.index[name] = i
		}
	}
	return t
}

// NormalizeHeader lower-cases a column name, trims it and replaces inner
// spaces with underscores
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// ReadTable reads a .csv or .xlsx file. For workbooks the first sheet whose
// header carries every required column is used.
func ReadTable(path string, required ...string) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		t, err = ReadWorkbook(path, required...)
	case ".csv", ".txt", "":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		t, err = ReadCSV(f, path)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if err := t.Require(required...); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadCSV reads a comma separated table with a header line
func ReadCSV(r io.Reader, source string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read line %d: %w", source, len(rows)+2, err)
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, record)
	}
	return NewTable(source, header, rows), nil
}

// ReadWorkbook reads the first sheet of an Excel workbook that has the
// required columns in its first non-empty row
func ReadWorkbook(path string, required ...string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		headerIdx := -1
		for i, row := range rows {
			if !isBlank(row) {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			continue
		}

		var body [][]string
		for _, row := range rows[headerIdx+1:] {
			if !isBlank(row) {
				body = append(body, row)
			}
		}
		t := NewTable(path, rows[headerIdx], body)
		t.Sheet = sheet
		if t.Require(required...) == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%s: no sheet with columns %v", path, required)
}

// Has reports whether the table carries the column
func (t *Table) Has(col string) bool {
	_, ok := t.index[NormalizeHeader(col)]
	return ok
}

// Require returns an error naming every missing column
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, NormalizeHeader(c))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns %v", t.Source, missing)
	}
	return nil
}

// FirstOf returns the first of the candidate column names present in the table
func (t *Table) FirstOf(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if t.Has(c) {
			return NormalizeHeader(c), true
		}
	}
	return "", false
}

// Value returns the trimmed cell of row in column col, or "" when absent
func (t *Table) Value(row []string, col string) string {
	i, ok := t.index[NormalizeHeader(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Line returns the 1-based source line of the i-th data row for CSV input
func (t *Table) Line(i int) int {
	return i + 2
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
