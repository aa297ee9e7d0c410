// Package address canonicalizes free-text street addresses so two
// spellings of the same address compare equal. Matching is deliberately
// strict full-string equality after normalization: a wrong-person match
// costs far more than a missed one.
package address

import (
	"regexp"
	"strings"
)

var (
	spaceRun = regexp.MustCompile(`\s+`)
	punctRun = regexp.MustCompile(`[-.\s]+`)
	commaRun = regexp.MustCompile(`[,\s]+`)

	// Unit designators and their trailing token. The search site
	// frequently omits or mis-renders unit numbers, so they are excluded
	// from comparison entirely.
	unitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*#\s*\d+[A-Z]*`),
		regexp.MustCompile(`\s*\bAPT\s*\d+[A-Z]*`),
		regexp.MustCompile(`\s*\bUNIT\s*\d+[A-Z]*`),
		regexp.MustCompile(`\s*\bSTE\s*\d+[A-Z]*`),
		regexp.MustCompile(`\s*\bSUITE\s*\d+[A-Z]*`),
	}
)

// Token-level canonical forms. Ordinals settle on the numeric spelling,
// directionals and street types on the postal abbreviation, matching what
// the search site itself renders most often.
var (
	ordinalTokens = map[string]string{
		"FIRST": "1ST", "SECOND": "2ND", "THIRD": "3RD", "FOURTH": "4TH",
		"FIFTH": "5TH", "SIXTH": "6TH", "SEVENTH": "7TH", "EIGHTH": "8TH",
		"NINTH": "9TH", "TENTH": "10TH", "ELEVENTH": "11TH",
		"TWELFTH": "12TH", "THIRTEENTH": "13TH", "TWENTIETH": "20TH",
		"THIRTIETH": "30TH", "FORTIETH": "40TH", "FIFTIETH": "50TH",
	}

	directionTokens = map[string]string{
		"NORTH": "N", "SOUTH": "S", "EAST": "E", "WEST": "W",
		"NORTHEAST": "NE", "NORTHWEST": "NW",
		"SOUTHEAST": "SE", "SOUTHWEST": "SW",
	}

	streetTypeTokens = map[string]string{
		"STREET": "ST", "AVENUE": "AVE", "DRIVE": "DR", "COURT": "CT",
		"PLACE": "PL", "ROAD": "RD", "CIRCLE": "CIR", "BOULEVARD": "BLVD",
		"LANE": "LN", "TERRACE": "TER", "PARKWAY": "PKWY", "HIGHWAY": "HWY",
	}
)

// Normalizer canonicalizes addresses for one configured state. It is pure
// and safe for concurrent use.
type Normalizer struct {
	suffixPatterns []*regexp.Regexp
}

// NewNormalizer builds a Normalizer that strips trailing city/state
// suffixes for the given state abbreviation (e.g. "FL"). The spelled-out
// state name is stripped too.
func NewNormalizer(stateAbbrev string) *Normalizer {
	abbrev := strings.ToUpper(strings.TrimSpace(stateAbbrev))
	name := strings.ToUpper(StateName(abbrev))

	alt := regexp.QuoteMeta(abbrev)
	if name != "" && name != abbrev {
		alt += "|" + regexp.QuoteMeta(name)
	}

	return &Normalizer{
		suffixPatterns: []*regexp.Regexp{
			// ", HALLANDALE BEACH, FL" and friends
			regexp.MustCompile(`,\s*[A-Z\s]+,\s*(?:` + alt + `)\s*$`),
			regexp.MustCompile(`,\s*(?:` + alt + `)\s*$`),
			regexp.MustCompile(`\s+(?:` + alt + `)\s*$`),
		},
	}
}

// Normalize returns the canonical form of addr. Empty or unusable input
// normalizes to "", which never matches anything.
func (n *Normalizer) Normalize(addr string) string {
	s := strings.TrimSpace(addr)
	if s == "" {
		return ""
	}

	s = strings.ToUpper(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(punctRun.ReplaceAllString(s, " "))

	for _, re := range unitPatterns {
		s = re.ReplaceAllString(s, "")
	}

	for _, re := range n.suffixPatterns {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimRight(s, ", ")

	// Commas have served their purpose for suffix detection; from here
	// the comparison is token-based.
	s = strings.TrimSpace(commaRun.ReplaceAllString(s, " "))
	if s == "" {
		return ""
	}

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if v, ok := ordinalTokens[tok]; ok {
			tokens[i] = v
			continue
		}
		if v, ok := directionTokens[tok]; ok {
			tokens[i] = v
			continue
		}
		if v, ok := streetTypeTokens[tok]; ok {
			tokens[i] = v
		}
	}
	return strings.Join(tokens, " ")
}

// Match reports whether target and candidate normalize to the same
// non-empty form. Two empty addresses never match.
func (n *Normalizer) Match(target, candidate string) bool {
	nt := n.Normalize(target)
	if nt == "" {
		return false
	}
	return nt == n.Normalize(candidate)
}
