package codematch

import (
	"regexp"
	"strings"
)

// MinCodeLength is the shortest string accepted as an unlock code.
const MinCodeLength = 4

// Pattern names, in priority order.
const (
	PatternSpanishPhrase   = "spanish_phrase"
	PatternCorruptedPhrase = "corrupted_phrase"
	PatternSpacedPhrase    = "spaced_phrase"
	PatternAcceso          = "acceso"
	PatternAccessCode      = "access_code"
	PatternCode            = "code"
	PatternTrailingToken   = "trailing_token"
)

// codePattern is a single entry of the ordered pattern table.
type codePattern struct {
	name string
	re   *regexp.Regexp
}

// patterns is the ordered pattern table. The phrase part of each pattern is
// case-insensitive; the code capture is always upper-case alphanumeric.
var patterns = []codePattern{
	{
		name: PatternSpanishPhrase,
		re:   regexp.MustCompile(`(?i:c[oó]digo\s+de\s+acceso)\s*[:\-]?\s*([A-Z0-9]{4,})`),
	},
	{
		// "CÃ³digo", "C?digo", "C�digo" and friends.
		name: PatternCorruptedPhrase,
		re:   regexp.MustCompile(`(?i:c\S{1,3}digo\s*de\s*acceso)\s*[:\-]?\s*([A-Z0-9]{4,})`),
	},
	{
		name: PatternSpacedPhrase,
		re: regexp.MustCompile(
			`(?i:c\s*\S{1,3}\s*d\s*i\s*g\s*o\s*d\s*e\s*a\s*c\s*c\s*e\s*s\s*o)\s*[:\-]?\s*([A-Z0-9]{4,})`),
	},
	{
		name: PatternAcceso,
		re:   regexp.MustCompile(`(?i:acceso)\s*[:\-]\s*([A-Z0-9]{4,})`),
	},
	{
		name: PatternAccessCode,
		re:   regexp.MustCompile(`(?i:access\s*code)\s*[:\-]?\s*([A-Z0-9]{4,})`),
	},
	{
		name: PatternCode,
		re:   regexp.MustCompile(`(?i:code)\s*[:\-]\s*([A-Z0-9]{4,})`),
	},
	{
		name: PatternTrailingToken,
		re:   regexp.MustCompile(`\b[A-Z]+[0-9]+\s*$`),
	},
}

var (
	validCodeRegex   = regexp.MustCompile(`^[A-Z0-9]{4,}$`)
	letterDigitRegex = regexp.MustCompile(`^[A-Z]+[0-9]+$`)
)

// Match is a code found by Search together with the pattern that produced it.
type Match struct {
	Code    string
	Pattern string
}

// SearchCodeInText returns the first code found in text, or false when no
// pattern produces an acceptable candidate.
func SearchCodeInText(text string) (string, bool) {
	m, ok := Search(text)
	return m.Code, ok
}

// Search applies the pattern table in priority order and stops at the first
// pattern whose candidate is at least MinCodeLength long.
//
// Candidates are matched upper-case only, so a lower-case word after a
// phrase ("acceso: abcd1234", "código de acceso para...") is not a
// candidate and the search moves on to the next pattern.
func Search(text string) (Match, bool) {
	if text == "" {
		return Match{}, false
	}

	for _, p := range patterns {
		groups := p.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}

		candidate := candidateFrom(groups)
		if len(candidate) >= MinCodeLength {
			return Match{Code: candidate, Pattern: p.name}, true
		}
	}

	return Match{}, false
}

// candidateFrom prefers the first capture group; without one the whole match
// is used only when it looks like LETTERS followed by DIGITS.
func candidateFrom(groups []string) string {
	if len(groups) > 1 {
		return strings.TrimSpace(groups[1])
	}

	whole := strings.TrimSpace(groups[0])
	if letterDigitRegex.MatchString(whole) {
		return whole
	}
	return ""
}

// IsValidCode reports whether code is upper-case alphanumeric and at least
// MinCodeLength characters long.
func IsValidCode(code string) bool {
	return validCodeRegex.MatchString(code)
}

// Patterns returns the pattern names in the order they are tried.
func Patterns() []string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.name
	}
	return names
}
