package dataset

import "strings"

// Roles are the two person slots carried by every row, in evaluation
// order. Each role contributes its own column family and is resolved
// independently of the other.
var Roles = []string{"IndirectName", "DirectName"}

// PhoneColumnSuffixes are the per-role result columns the extractor
// writes. MergePhoneColumns copies exactly these back into a combined
// table.
var PhoneColumnSuffixes = []string{
	"_Phone_Primary",
	"_Phone_Secondary",
	"_Phone_All",
	"_Address_Match",
}

// SubRecord is one role's view of a row: the person to search for and
// the address their result must match.
type SubRecord struct {
	Row     int
	Role    string
	Name    string
	Address string
	City    string
	State   string
	Type    string
}

// Empty reports whether the sub-record carries neither a name nor an
// address, meaning the role slot is simply unused on this row.
func (s SubRecord) Empty() bool {
	return s.Name == "" && s.Address == ""
}

// SubRecordAt reads the named role's columns from the 1-based row.
// Cell values are trimmed; absent optional columns read as empty.
func SubRecordAt(t *Table, row int, role string) SubRecord {
	return SubRecord{
		Row:     row,
		Role:    role,
		Name:    strings.TrimSpace(t.Get(row, role+"_Cleaned")),
		Address: strings.TrimSpace(t.Get(row, role+"_Address")),
		City:    strings.TrimSpace(t.Get(row, role+"_City")),
		State:   strings.TrimSpace(t.Get(row, role+"_State")),
		Type:    strings.TrimSpace(t.Get(row, role+"_Type")),
	}
}

// HasPhone reports whether the role already has a primary phone on
// this row, which makes the sub-record skippable on resume.
func HasPhone(t *Table, row int, role string) bool {
	return strings.TrimSpace(t.Get(row, role+"_Phone_Primary")) != ""
}

// EnsurePhoneColumns adds the role's result columns if missing.
func EnsurePhoneColumns(t *Table, role string) {
	for _, suffix := range PhoneColumnSuffixes {
		t.EnsureColumn(role + suffix)
	}
}

// MergePhoneColumns copies the result columns of every role from src
// into dst, where src row 1 corresponds to dst row offset+1. Non-phone
// columns are left alone so batch slices can be folded back into the
// combined table.
func MergePhoneColumns(dst, src *Table, offset int) error {
	for _, role := range Roles {
		for _, suffix := range PhoneColumnSuffixes {
			col := role + suffix
			if !src.HasColumn(col) {
				continue
			}
			dst.EnsureColumn(col)
			for row := 1; row <= src.RowCount(); row++ {
				v := src.Get(row, col)
				if v == "" {
					continue
				}
				if err := dst.Set(offset+row, col, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
