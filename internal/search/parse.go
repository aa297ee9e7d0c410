package search

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const phoneSectionHeading = "Last Known Phone Numbers"

// Headings that end the phone section when walking its siblings.
var stopHeadings = []string{
	"Associated Email",
	"Associated Phone",
	"Jobs",
	"Past Addresses",
}

var (
	leadingNumberRe = regexp.MustCompile(`^\d+\s+`)
	streetTypeRe    = regexp.MustCompile(`\b(?:ST|DR|AVE|CT|RD|LN|BLVD|WAY|PL|CIR|TER|HWY|PKWY|DRIVE|STREET|AVENUE|COURT|ROAD|LANE|BOULEVARD|PLACE|CIRCLE|TERRACE|HIGHWAY|PARKWAY)\b`)
	cityStateZipRe  = regexp.MustCompile(`[A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}`)
)

// containsName reports whether the card text mentions both name
// tokens, case-insensitively.
func containsName(cardText, first, last string) bool {
	lower := strings.ToLower(cardText)
	return strings.Contains(lower, strings.ToLower(first)) &&
		strings.Contains(lower, strings.ToLower(last))
}

// extractAddresses pulls the lines of the card that read like street
// addresses: a leading house number with a street-type word, or a
// city, state ZIP line.
func extractAddresses(cardText string) []string {
	var addrs []string
	for _, line := range strings.Split(cardText, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case leadingNumberRe.MatchString(line) &&
			streetTypeRe.MatchString(strings.ToUpper(line)) &&
			len(line) > 10:
			addrs = append(addrs, line)
		case cityStateZipRe.MatchString(line):
			addrs = append(addrs, line)
		}
	}
	return addrs
}

// phoneSectionText walks the card markup for the phone section
// heading and gathers the text of its following siblings, stopping at
// the next section heading. Empty when the card has no such section.
func phoneSectionText(cardHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div>" + cardHTML + "</div>"))
	if err != nil {
		return ""
	}

	var section strings.Builder
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		if !strings.Contains(heading.Text(), phoneSectionHeading) {
			return true
		}
		for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
			text := sib.Text()
			if isStopHeading(text) {
				break
			}
			section.WriteString(text)
			section.WriteString("\n")
		}
		return false
	})
	return section.String()
}

func isStopHeading(text string) bool {
	for _, h := range stopHeadings {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// parseCard turns one card's text and markup into a Candidate. The
// second return is false when the card does not belong to the person
// searched for.
func parseCard(cardText, cardHTML, first, last string) (Candidate, bool) {
	if !containsName(cardText, first, last) {
		return Candidate{}, false
	}

	cand := Candidate{Addresses: extractAddresses(cardText)}

	if section := phoneSectionText(cardHTML); strings.TrimSpace(section) != "" {
		cand.Phones = ExtractPhones(section)
		cand.Primary = designatedPrimary(section, cand.Phones)
	} else {
		// No dedicated section; fall back to the whole card but cap
		// the take so associated people's numbers stay out.
		phones := ExtractPhones(cardText)
		if len(phones) > 2 {
			phones = phones[:2]
		}
		cand.Phones = phones
	}
	if cand.Primary == "" && len(cand.Phones) > 0 {
		cand.Primary = cand.Phones[0]
	}
	return cand, true
}
