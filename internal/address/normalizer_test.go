package address

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := NewNormalizer("FL")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "unit and city state suffix stripped",
			in:   "123 Main St Apt 4B, Hallandale Beach, FL",
			want: "123 MAIN ST",
		},
		{
			name: "street type abbreviated",
			in:   "123 MAIN STREET, FL",
			want: "123 MAIN ST",
		},
		{
			name: "hash unit marker",
			in:   "456 Ocean Dr # 10",
			want: "456 OCEAN DR",
		},
		{
			name: "suite with letter suffix",
			in:   "789 Federal Hwy Suite 200B",
			want: "789 FEDERAL HWY",
		},
		{
			name: "ordinal word to numeric",
			in:   "12 FIRST AVENUE",
			want: "12 1ST AVE",
		},
		{
			name: "direction expanded to abbreviation",
			in:   "900 North Federal Highway",
			want: "900 N FEDERAL HWY",
		},
		{
			name: "diagonal direction",
			in:   "21 Northwest 3rd Court",
			want: "21 NW 3RD CT",
		},
		{
			name: "spelled out state name suffix",
			in:   "55 Pine Ln, Florida",
			want: "55 PINE LN",
		},
		{
			name: "hyphens and periods collapse",
			in:   "77  S.W.  8th-Street",
			want: "77 S W 8TH ST",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only",
			in:   "   ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := n.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	t.Parallel()

	n := NewNormalizer("FL")

	pairs := []struct {
		a, b string
	}{
		{"123 Main St Apt 4B, Hallandale Beach, FL", "123 MAIN STREET, FL"},
		{"12 First Ave", "12 1st Avenue"},
		{"900 N Federal Hwy", "900 NORTH FEDERAL HIGHWAY"},
		{"21 NW 3rd Ct, Miami, FL", "21 Northwest 3rd Court"},
	}
	for _, p := range pairs {
		if n.Normalize(p.a) != n.Normalize(p.b) {
			t.Errorf("expected %q and %q to normalize equal, got %q vs %q",
				p.a, p.b, n.Normalize(p.a), n.Normalize(p.b))
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	n := NewNormalizer("FL")

	t.Run("different house numbers do not match", func(t *testing.T) {
		t.Parallel()
		if n.Match("123 Main St", "125 Main St") {
			t.Error("123 Main St should not match 125 Main St")
		}
	})

	t.Run("empty never matches empty", func(t *testing.T) {
		t.Parallel()
		if n.Match("", "") {
			t.Error("two empty addresses must not match")
		}
	})

	t.Run("empty target never matches candidate", func(t *testing.T) {
		t.Parallel()
		if n.Match("", "123 Main St") {
			t.Error("empty target must not match")
		}
	})

	t.Run("unit number ignored", func(t *testing.T) {
		t.Parallel()
		if !n.Match("123 MAIN ST APT 4, HALLANDALE BEACH, FL", "123 MAIN STREET") {
			t.Error("expected match once unit and suffix are stripped")
		}
	})
}

func TestStateName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"FL", "Florida"},
		{"fl", "Florida"},
		{"NY", "New York"},
		{"FLORIDA", "Florida"},
		{"florida", "Florida"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StateName(tt.in); got != tt.want {
			t.Errorf("StateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
