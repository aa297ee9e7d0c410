package search

import (
	"reflect"
	"testing"

	"phonehunt/internal/address"
)

func TestResolveMatchingRecord(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{
			Addresses: []string{"123 MAIN STREET"},
			Phones:    []string{"(954) 555-0100"},
			Primary:   "(954) 555-0100",
		},
	}}

	m, ok := result.Resolve(n, "123 MAIN ST APT 4, HALLANDALE BEACH, FL")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Primary != "(954) 555-0100" {
		t.Errorf("primary = %q, want (954) 555-0100", m.Primary)
	}
	if m.Address != "123 MAIN STREET" {
		t.Errorf("matched address = %q, want the candidate's own address", m.Address)
	}
	if m.Secondary != "" {
		t.Errorf("secondary = %q, want empty for single phone", m.Secondary)
	}
}

func TestResolvePicksMatchRegardlessOfPosition(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{
			Addresses: []string{"456 Oak Ave"},
			Phones:    []string{"(305) 555-0001"},
			Primary:   "(305) 555-0001",
		},
		{
			Addresses: []string{"123 Main Street Apt 5", "Hallandale Beach, FL 33009"},
			Phones:    []string{"(954) 555-0100", "(954) 555-0123"},
			Primary:   "(954) 555-0100",
		},
	}}

	m, ok := result.Resolve(n, "123 MAIN ST")
	if !ok {
		t.Fatal("expected the second candidate to match")
	}
	if m.Address != "123 Main Street Apt 5" {
		t.Errorf("matched address = %q", m.Address)
	}
	if m.Secondary != "(954) 555-0123" {
		t.Errorf("secondary = %q", m.Secondary)
	}
	if got := JoinPhones(m.AllPhones); got != "(954) 555-0100, (954) 555-0123" {
		t.Errorf("all phones = %q", got)
	}
}

func TestResolveFirstOfSeveralMatchesWins(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{Addresses: []string{"123 Main St"}, Phones: []string{"(954) 555-0001"}, Primary: "(954) 555-0001"},
		{Addresses: []string{"123 Main Street"}, Phones: []string{"(954) 555-0002"}, Primary: "(954) 555-0002"},
	}}

	m, ok := result.Resolve(n, "123 Main Street")
	if !ok || m.Primary != "(954) 555-0001" {
		t.Errorf("expected first matching candidate to win, got %+v", m)
	}
}

func TestResolveSkipsPhonelessMatch(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{Addresses: []string{"123 Main St"}},
		{Addresses: []string{"123 Main Street"}, Phones: []string{"(954) 555-0002"}, Primary: "(954) 555-0002"},
	}}

	m, ok := result.Resolve(n, "123 Main St")
	if !ok {
		t.Fatal("expected the phone-carrying candidate to win")
	}
	if m.Primary != "(954) 555-0002" {
		t.Errorf("primary = %q", m.Primary)
	}
}

func TestResolveNoMatch(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{Addresses: []string{"456 Oak Ave"}, Phones: []string{"(305) 555-0001"}, Primary: "(305) 555-0001"},
	}}

	if _, ok := result.Resolve(n, "123 Main St"); ok {
		t.Error("wrong address must not resolve")
	}
	if _, ok := result.Resolve(n, ""); ok {
		t.Error("empty target must never resolve")
	}

	empty := &Result{}
	if _, ok := empty.Resolve(n, "123 Main St"); ok {
		t.Error("empty result must not resolve")
	}
}

func TestResolveKeepsPhoneOrder(t *testing.T) {
	t.Parallel()

	n := address.NewNormalizer("FL")
	result := &Result{Candidates: []Candidate{
		{
			Addresses: []string{"123 Main St"},
			Phones:    []string{"(954) 555-0123", "(954) 555-0100", "(954) 555-0155"},
			Primary:   "(954) 555-0100",
		},
	}}

	m, ok := result.Resolve(n, "123 Main St")
	if !ok {
		t.Fatal("expected match")
	}
	// Secondary is the first listed number that is not the primary.
	if m.Secondary != "(954) 555-0123" {
		t.Errorf("secondary = %q", m.Secondary)
	}
	want := []string{"(954) 555-0123", "(954) 555-0100", "(954) 555-0155"}
	if !reflect.DeepEqual(m.AllPhones, want) {
		t.Errorf("all phones reordered: %v", m.AllPhones)
	}
}
