package domain

import (
	"regexp"
	"strings"
)

// CanonicalIDPrefix is the URL prefix of canonical OpenAlex work IDs.
const CanonicalIDPrefix = "https://openalex.org/"

// workIDPattern matches a short work ID: a letter immediately followed by
// digits, bounded on both sides. URLs, DOIs, and prose around the ID do
// not produce spurious matches because their letter runs are longer than
// one character or lack trailing digits.
var workIDPattern = regexp.MustCompile(`(?i)\b[a-z][0-9]+\b`)

// NormalizeWorkID extracts the work ID from any accepted input form (short
// ID, canonical URL, or a string embedding either) and returns the
// canonical URL form and the uppercased short form. Both outputs are valid
// cache keys for the same candidate, and normalizing a canonical ID is
// idempotent.
func NormalizeWorkID(input string) (canonical, short string, err error) {
	match := workIDPattern.FindString(strings.TrimSpace(input))
	if match == "" {
		return "", "", &IdentifierError{Input: input}
	}
	short = strings.ToUpper(match)
	return CanonicalIDPrefix + short, short, nil
}
