package address

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateNames maps USPS abbreviations to the full names the search site's
// state dropdown uses.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut",
	"DE": "Delaware", "DC": "District of Columbia", "FL": "Florida",
	"GA": "Georgia", "HI": "Hawaii", "ID": "Idaho", "IL": "Illinois",
	"IN": "Indiana", "IA": "Iowa", "KS": "Kansas", "KY": "Kentucky",
	"LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana",
	"NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire",
	"NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania",
	"RI": "Rhode Island", "SC": "South Carolina", "SD": "South Dakota",
	"TN": "Tennessee", "TX": "Texas", "UT": "Utah", "VT": "Vermont",
	"VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming",
}

var stateAbbrevs = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for abbrev, name := range stateNames {
		m[strings.ToUpper(name)] = abbrev
	}
	return m
}()

var titleCaser = cases.Title(language.AmericanEnglish)

// StateName resolves a state to the full name used by the site's
// dropdown. Abbreviations are looked up; anything else is title-cased and
// returned as-is, so "FLORIDA" and "florida" both become "Florida".
func StateName(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if name, ok := stateNames[strings.ToUpper(trimmed)]; ok {
		return name
	}
	return titleCaser.String(strings.ToLower(trimmed))
}

// StateAbbrev is the inverse of StateName: "Florida" becomes "FL".
// Inputs that already look like an abbreviation pass through uppercased.
func StateAbbrev(s string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return ""
	}
	if abbrev, ok := stateAbbrevs[trimmed]; ok {
		return abbrev
	}
	return trimmed
}
