package sequencer

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripTitlePrefix removes the first matching prefix from a documentation
// title, ignoring case. Titles without a known prefix are returned trimmed.
func StripTitlePrefix(title string, prefixes []string) string {
	title = strings.TrimSpace(title)
	fold := cases.Fold()
	head := []rune(title)

	for _, prefix := range prefixes {
		p := []rune(prefix)
		if len(p) == 0 || len(p) > len(head) {
			continue
		}
		if fold.String(string(head[:len(p)])) == fold.String(prefix) {
			if rest := strings.TrimSpace(string(head[len(p):])); rest != "" {
				return rest
			}
		}
	}
	return title
}

// asciiFold drops combining marks after decomposition: "Códice" -> "Codice".
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DocumentName returns the file name used for an item's download.
func DocumentName(title string, index int) string {
	plain, _, err := transform.String(asciiFold, title)
	if err != nil {
		plain = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = fmt.Sprintf("item-%d", index)
	}
	return slug + ".pdf"
}
