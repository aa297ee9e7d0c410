package search

import (
	"regexp"
	"strings"
)

var (
	phoneRe    = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nonDigitRe = regexp.MustCompile(`\D`)
)

// FormatPhone normalizes a raw match to (XXX) XXX-XXXX. Anything that
// does not reduce to exactly ten digits is rejected.
func FormatPhone(raw string) (string, bool) {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) != 10 {
		return "", false
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:], true
}

// ExtractPhones finds every phone number in the text, normalized and
// deduplicated in order of first appearance.
func ExtractPhones(text string) []string {
	var phones []string
	seen := make(map[string]bool)
	for _, m := range phoneRe.FindAllString(text, -1) {
		formatted, ok := FormatPhone(m)
		if !ok || seen[formatted] {
			continue
		}
		seen[formatted] = true
		phones = append(phones, formatted)
	}
	return phones
}

// designatedPrimary returns the phone the section text explicitly
// labels as primary, or empty when no label is present. The label and
// the number must share a line.
func designatedPrimary(sectionText string, phones []string) string {
	if len(phones) == 0 || !strings.Contains(strings.ToLower(sectionText), "primary") {
		return ""
	}
	for _, line := range strings.Split(sectionText, "\n") {
		if !strings.Contains(strings.ToLower(line), "primary") {
			continue
		}
		lineDigits := nonDigitRe.ReplaceAllString(line, "")
		for _, phone := range phones {
			if strings.Contains(lineDigits, nonDigitRe.ReplaceAllString(phone, "")) {
				return phone
			}
		}
	}
	return ""
}
