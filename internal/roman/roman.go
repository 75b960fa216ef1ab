// Package roman converts roman-numeral century labels into integer ranks
// used to order catalog items chronologically.
package roman

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrEmptyNumeral is wrapped by InvalidNumeralError when the input has no symbols.
var ErrEmptyNumeral = errors.New("empty roman numeral")

// InvalidNumeralError reports a character outside I, V, X, L, C, D, M.
// A catalog emitting such labels is misbehaving, so the error is never
// silently turned into a default rank.
type InvalidNumeralError struct {
	// Input is the label as received.
	Input string

	// Char is the offending character. Zero when the input is empty.
	Char rune

	// Pos is the byte offset of Char in Input, or -1 for empty input.
	Pos int

	err error
}

// Error implements the error interface.
func (e *InvalidNumeralError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("invalid roman numeral %q: %v", e.Input, e.err)
	}
	return fmt.Sprintf("invalid roman numeral %q: unexpected %q at position %d", e.Input, e.Char, e.Pos)
}

// Unwrap returns the underlying cause, if any.
func (e *InvalidNumeralError) Unwrap() error {
	return e.err
}

// symbolValue returns the value of an upper-case roman symbol.
func symbolValue(r rune) (int, bool) {
	switch r {
	case 'I':
		return 1, true
	case 'V':
		return 5, true
	case 'X':
		return 10, true
	case 'L':
		return 50, true
	case 'C':
		return 100, true
	case 'D':
		return 500, true
	case 'M':
		return 1000, true
	default:
		return 0, false
	}
}

// ToRank evaluates a roman numeral using subtractive notation.
//
// The numeral is scanned right to left; a symbol smaller than the one to
// its right is subtracted, otherwise added. Input is case-insensitive.
func ToRank(numeral string) (int, error) {
	if numeral == "" {
		return 0, &InvalidNumeralError{Input: numeral, Pos: -1, err: ErrEmptyNumeral}
	}

	runes := []rune(strings.ToUpper(numeral))
	total := 0
	prev := 0
	for i := len(runes) - 1; i >= 0; i-- {
		value, ok := symbolValue(runes[i])
		if !ok {
			return 0, &InvalidNumeralError{
				Input: numeral,
				Char:  []rune(numeral)[i],
				Pos:   len(string([]rune(numeral)[:i])),
			}
		}
		if value >= prev {
			total += value
		} else {
			total -= value
		}
		prev = value
	}

	return total, nil
}

// centuryWords are prefixes that may precede the numeral in a label.
var centuryWords = []string{"siglo", "century", "saec.", "saec", "s."}

// ParseCenturyLabel extracts the roman numeral from a century label such as
// "Siglo XIV", "XIV century" or plain "XIV".
func ParseCenturyLabel(label string) (string, error) {
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ':' || r == '(' || r == ')'
	})

	for _, f := range fields {
		lower := strings.ToLower(f)
		if isCenturyWord(lower) {
			continue
		}
		if _, err := ToRank(f); err == nil {
			return strings.ToUpper(f), nil
		}
	}

	// Report the error against the first token that is not a century word.
	candidate := ""
	for _, f := range fields {
		if !isCenturyWord(strings.ToLower(f)) {
			candidate = f
			break
		}
	}
	if _, err := ToRank(candidate); err != nil {
		return "", err
	}
	return strings.ToUpper(candidate), nil
}

func isCenturyWord(s string) bool {
	for _, w := range centuryWords {
		if s == w {
			return true
		}
	}
	return false
}
