package search

import (
	"strings"

	"phonehunt/internal/address"
)

// Candidate is one person card from a results page: the addresses it
// lists and the phone numbers read from its phone section. Primary is
// the number the page designates, or the first one found.
type Candidate struct {
	Addresses []string
	Phones    []string
	Primary   string
}

// Result is everything a search returned, in page order. An empty
// candidate list is a legitimate outcome, not an error.
type Result struct {
	Candidates []Candidate
}

// Match is a resolved candidate: the phones to write back and the
// address that earned them.
type Match struct {
	Address   string
	Primary   string
	Secondary string
	AllPhones []string
}

// Resolve picks the first candidate, in page order, that lists an
// address matching the target and carries at least one phone number.
// A candidate whose address matches but that has no phones is passed
// over; a later candidate may still win.
func (r *Result) Resolve(n *address.Normalizer, target string) (*Match, bool) {
	for _, cand := range r.Candidates {
		matched := ""
		for _, addr := range cand.Addresses {
			if n.Match(target, addr) {
				matched = addr
				break
			}
		}
		if matched == "" || len(cand.Phones) == 0 {
			continue
		}

		m := &Match{
			Address:   matched,
			Primary:   cand.Primary,
			AllPhones: cand.Phones,
		}
		if m.Primary == "" {
			m.Primary = cand.Phones[0]
		}
		for _, phone := range cand.Phones {
			if phone != m.Primary {
				m.Secondary = phone
				break
			}
		}
		return m, true
	}
	return nil, false
}

// JoinPhones renders the full phone list for the _Phone_All column.
func JoinPhones(phones []string) string {
	return strings.Join(phones, ", ")
}
