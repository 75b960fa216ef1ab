package docextract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// mojibakeMarkers are sequences left behind when UTF-8 text is decoded as
// Windows-1252.
var mojibakeMarkers = []string{"Ã", "Â", "â€"}

// repairEncoding undoes UTF-8 read as Windows-1252 ("CÃ³digo" becomes
// "Código") and normalises the result to NFC. Text without mojibake is only
// normalised.
func repairEncoding(text string) string {
	if hasMojibake(text) {
		if raw, err := charmap.Windows1252.NewEncoder().String(text); err == nil && utf8.ValidString(raw) {
			text = raw
		}
	}
	return norm.NFC.String(text)
}

func hasMojibake(text string) bool {
	for _, m := range mojibakeMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
