package search

import (
	"reflect"
	"testing"
)

func TestFormatPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"(954) 555-0100", "(954) 555-0100", true},
		{"954-555-0100", "(954) 555-0100", true},
		{"954.555.0100", "(954) 555-0100", true},
		{"9545550100", "(954) 555-0100", true},
		{"555-0100", "", false},
		{"12345678901", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatPhone(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FormatPhone(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractPhones(t *testing.T) {
	t.Parallel()

	text := `Last Known Phone Numbers
(954) 555-0100 (Primary Phone)
954.555.0123
(954) 555-0100
Call now: 305-555-0188`

	got := ExtractPhones(text)
	want := []string{"(954) 555-0100", "(954) 555-0123", "(305) 555-0188"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractPhones = %v, want %v", got, want)
	}
}

func TestExtractPhonesNone(t *testing.T) {
	t.Parallel()

	if got := ExtractPhones("no numbers here, just 12345"); len(got) != 0 {
		t.Errorf("expected no phones, got %v", got)
	}
}

func TestDesignatedPrimary(t *testing.T) {
	t.Parallel()

	phones := []string{"(954) 555-0123", "(954) 555-0100"}

	section := "(954) 555-0123\n(954) 555-0100 (Primary Phone)\n"
	if got := designatedPrimary(section, phones); got != "(954) 555-0100" {
		t.Errorf("designatedPrimary = %q, want (954) 555-0100", got)
	}

	unlabeled := "(954) 555-0123\n(954) 555-0100\n"
	if got := designatedPrimary(unlabeled, phones); got != "" {
		t.Errorf("expected no designation, got %q", got)
	}
}
