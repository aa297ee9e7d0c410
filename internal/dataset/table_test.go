package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndSave(t *testing.T) {
	t.Parallel()

	in := writeCSV(t, "Name,City\nAlice,Miami\nBob\n")
	table, err := Load(in)
	if err != nil {
		t.Fatal(err)
	}
	if table.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.RowCount())
	}
	if got := table.Get(2, "City"); got != "" {
		t.Errorf("short row should pad to empty, got %q", got)
	}

	out := filepath.Join(t.TempDir(), "out.csv")
	if err := table.Save(out); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.RowCount() != 2 || reloaded.Get(1, "Name") != "Alice" {
		t.Errorf("round trip lost data: %d rows, Name=%q", reloaded.RowCount(), reloaded.Get(1, "Name"))
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()

	table := New([]string{"Name"})
	table.Append([]string{"Alice"})

	clone := table.Clone()
	if err := clone.Set(1, "Name", "Mallory"); err != nil {
		t.Fatal(err)
	}
	clone.EnsureColumn("Phone")

	if got := table.Get(1, "Name"); got != "Alice" {
		t.Errorf("clone write leaked into original: %q", got)
	}
	if table.HasColumn("Phone") {
		t.Error("clone column leaked into original")
	}
}

func TestEnsureColumnAndSet(t *testing.T) {
	t.Parallel()

	table := New([]string{"Name"})
	table.Append([]string{"Alice"})

	if err := table.Set(1, "Phone", "555"); err == nil {
		t.Error("expected ErrColumnMissing for unknown column")
	}

	table.EnsureColumn("Phone")
	table.EnsureColumn("Phone")
	if got := len(table.Columns()); got != 2 {
		t.Fatalf("EnsureColumn must be idempotent, got %d columns", got)
	}
	if err := table.Set(1, "Phone", "555"); err != nil {
		t.Fatal(err)
	}
	if got := table.Get(1, "Phone"); got != "555" {
		t.Errorf("Set did not stick: %q", got)
	}
}

func TestClampRange(t *testing.T) {
	t.Parallel()

	table := New([]string{"Name"})
	for i := 0; i < 10; i++ {
		table.Append([]string{"x"})
	}

	tests := []struct {
		name       string
		start, end int
		wantStart  int
		wantEnd    int
		wantOK     bool
	}{
		{"oversized end clamps", 1, 1000, 1, 10, true},
		{"zero end means all", 1, 0, 1, 10, true},
		{"start below one clamps", -5, 3, 1, 3, true},
		{"inside bounds untouched", 2, 5, 2, 5, true},
		{"inverted range is empty", 8, 2, 8, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end, ok := table.ClampRange(tt.start, tt.end)
			if start != tt.wantStart || end != tt.wantEnd || ok != tt.wantOK {
				t.Errorf("ClampRange(%d, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.start, tt.end, start, end, ok, tt.wantStart, tt.wantEnd, tt.wantOK)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	t.Parallel()

	table := New([]string{"Name"})
	for _, n := range []string{"a", "b", "c", "d"} {
		table.Append([]string{n})
	}

	s := table.Slice(2, 3)
	if s.RowCount() != 2 || s.Get(1, "Name") != "b" || s.Get(2, "Name") != "c" {
		t.Errorf("Slice(2,3) wrong: %d rows, first=%q", s.RowCount(), s.Get(1, "Name"))
	}

	if err := s.Set(1, "Name", "z"); err != nil {
		t.Fatal(err)
	}
	if table.Get(2, "Name") != "b" {
		t.Error("slice write leaked into source table")
	}

	if empty := table.Slice(9, 12); empty.RowCount() != 0 {
		t.Errorf("out-of-range slice should be empty, got %d rows", empty.RowCount())
	}
}

func TestSubRecordAt(t *testing.T) {
	t.Parallel()

	table := New([]string{"DirectName_Cleaned", "DirectName_Address", "DirectName_Type"})
	table.Append([]string{"  JOHN SMITH  ", "123 Main St", "Person"})

	sub := SubRecordAt(table, 1, "DirectName")
	if sub.Name != "JOHN SMITH" {
		t.Errorf("name not trimmed: %q", sub.Name)
	}
	if sub.City != "" || sub.State != "" {
		t.Errorf("absent columns should read empty, got city=%q state=%q", sub.City, sub.State)
	}
	if sub.Empty() {
		t.Error("populated sub-record reported empty")
	}

	indirect := SubRecordAt(table, 1, "IndirectName")
	if !indirect.Empty() {
		t.Error("unused role slot should be empty")
	}
}

func TestMergePhoneColumns(t *testing.T) {
	t.Parallel()

	combined := New([]string{"DirectName_Cleaned"})
	for _, n := range []string{"a", "b", "c", "d"} {
		combined.Append([]string{n})
	}

	batch := combined.Slice(3, 4)
	EnsurePhoneColumns(batch, "DirectName")
	if err := batch.Set(1, "DirectName_Phone_Primary", "(954) 555-0101"); err != nil {
		t.Fatal(err)
	}
	if err := batch.Set(2, "DirectName_Address_Match", "123 MAIN ST"); err != nil {
		t.Fatal(err)
	}

	if err := MergePhoneColumns(combined, batch, 2); err != nil {
		t.Fatal(err)
	}
	if got := combined.Get(3, "DirectName_Phone_Primary"); got != "(954) 555-0101" {
		t.Errorf("row 3 phone not merged: %q", got)
	}
	if got := combined.Get(4, "DirectName_Address_Match"); got != "123 MAIN ST" {
		t.Errorf("row 4 match not merged: %q", got)
	}
	if got := combined.Get(1, "DirectName_Phone_Primary"); got != "" {
		t.Errorf("rows outside the batch must stay empty, got %q", got)
	}
}

func TestHasPhone(t *testing.T) {
	t.Parallel()

	table := New([]string{"DirectName_Phone_Primary"})
	table.Append([]string{"(954) 555-0101"})
	table.Append([]string{"   "})

	if !HasPhone(table, 1, "DirectName") {
		t.Error("row 1 has a phone")
	}
	if HasPhone(table, 2, "DirectName") {
		t.Error("whitespace-only cell is not a phone")
	}
	if HasPhone(table, 1, "IndirectName") {
		t.Error("missing column is not a phone")
	}
}
