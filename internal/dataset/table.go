// Package dataset loads, mutates and saves the CSV tables the batch
// pipeline operates on. A Table keeps the original column order and is
// always mutated through an in-memory copy so the input file on disk
// stays untouched until Save writes a distinct output path.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
)

// ErrColumnMissing is returned by Set when the named column does not
// exist. Callers add columns up front with EnsureColumn.
var ErrColumnMissing = errors.New("dataset: column missing")

// Table is an ordered, header-indexed CSV table. Row numbers in the
// public API are 1-based to match how operators talk about record
// ranges.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds an empty table with the given header.
func New(columns []string) *Table {
	t := &Table{columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c] = i
	}
}

// Load reads a CSV file into a Table. Rows shorter than the header are
// padded with empty cells so every row has one cell per column.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %s has no header row", path)
	}

	t := New(records[0])
	for _, rec := range records[1:] {
		row := make([]string, len(t.columns))
		copy(row, rec)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// Save writes the table to path, creating or truncating it.
func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return nil
}

// Clone returns a deep copy. Batch processing always works on a clone
// so a failed run never corrupts the caller's table.
func (t *Table) Clone() *Table {
	c := New(t.columns)
	c.rows = make([][]string, len(t.rows))
	for i, row := range t.rows {
		c.rows[i] = append([]string(nil), row...)
	}
	return c
}

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// RowCount reports the number of data rows.
func (t *Table) RowCount() int { return len(t.rows) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// EnsureColumn adds an empty column if it is not already present.
func (t *Table) EnsureColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
}

// Get returns the cell at the 1-based row and named column. Missing
// columns and out-of-range rows read as empty, which lets callers
// treat optional columns uniformly.
func (t *Table) Get(row int, col string) string {
	i, ok := t.index[col]
	if !ok || row < 1 || row > len(t.rows) {
		return ""
	}
	return t.rows[row-1][i]
}

// Set writes the cell at the 1-based row and named column.
func (t *Table) Set(row int, col, value string) error {
	i, ok := t.index[col]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnMissing, col)
	}
	if row < 1 || row > len(t.rows) {
		return fmt.Errorf("dataset: row %d out of range 1..%d", row, len(t.rows))
	}
	t.rows[row-1][i] = value
	return nil
}

// Append adds a data row, padding or truncating to the column count.
func (t *Table) Append(row []string) {
	r := make([]string, len(t.columns))
	copy(r, row)
	t.rows = append(t.rows, r)
}

// ClampRange normalizes a 1-based inclusive record range against the
// table size. A zero end means "through the last row". The returned
// ok is false when the clamped range is empty.
func (t *Table) ClampRange(start, end int) (int, int, bool) {
	if end <= 0 || end > len(t.rows) {
		end = len(t.rows)
	}
	if start < 1 {
		start = 1
	}
	if start > end {
		return start, end, false
	}
	return start, end, true
}

// Slice returns a deep copy of the 1-based inclusive row range,
// clamped to the table bounds.
func (t *Table) Slice(start, end int) *Table {
	start, end, ok := t.ClampRange(start, end)
	s := New(t.columns)
	if !ok {
		return s
	}
	s.rows = make([][]string, 0, end-start+1)
	for i := start - 1; i < end; i++ {
		s.rows = append(s.rows, append([]string(nil), t.rows[i]...))
	}
	return s
}
