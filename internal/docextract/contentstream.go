package docextract

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// maxInflatedStream bounds the decompressed size of a single stream.
const maxInflatedStream = 16 << 20

var (
	streamKeyword    = []byte("stream")
	endstreamKeyword = []byte("endstream")
)

// showTextLiterals scans the raw buffer and every inflatable stream inside
// it for string literals drawn by Tj, ', " or TJ, and joins them with single
// spaces.
func showTextLiterals(buf []byte) string {
	var parts []string
	for _, segment := range contentSegments(buf) {
		parts = append(parts, scanShowText(segment)...)
	}
	return strings.Join(parts, " ")
}

// contentSegments returns buf followed by the inflated body of every
// stream ... endstream section that zlib can decode.
func contentSegments(buf []byte) [][]byte {
	segments := [][]byte{buf}

	rest := buf
	for {
		start := bytes.Index(rest, streamKeyword)
		if start < 0 {
			break
		}
		// Skip "endstream" hits; they are not stream openings.
		if start >= 3 && bytes.Equal(rest[start-3:start], []byte("end")) {
			rest = rest[start+len(streamKeyword):]
			continue
		}

		dataStart := start + len(streamKeyword)
		if dataStart < len(rest) && rest[dataStart] == '\r' {
			dataStart++
		}
		if dataStart < len(rest) && rest[dataStart] == '\n' {
			dataStart++
		}

		end := bytes.Index(rest[dataStart:], endstreamKeyword)
		if end < 0 {
			break
		}
		data := rest[dataStart : dataStart+end]
		if inflated, ok := inflate(data); ok {
			segments = append(segments, inflated)
		}
		rest = rest[dataStart+end+len(endstreamKeyword):]
	}

	return segments
}

// inflate decodes a FlateDecode stream. Partial output from a truncated
// stream is still returned.
func inflate(data []byte) ([]byte, bool) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	out, _ := io.ReadAll(io.LimitReader(zr, maxInflatedStream))
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// scanShowText walks a content stream and collects the text of every
// show-text operation. Array elements of a single TJ are concatenated
// without separators, as the gaps between them are kerning.
func scanShowText(data []byte) []string {
	var out []string

	for i := 0; i < len(data); {
		switch data[i] {
		case '(':
			lit, next := readLiteral(data, i)
			if op := nextOperator(data, next); op == "Tj" || op == "'" || op == `"` {
				if s := decodeLiteral(lit); s != "" {
					out = append(out, s)
				}
			}
			i = next
		case '[':
			lits, next := readArray(data, i)
			if nextOperator(data, next) == "TJ" {
				var b strings.Builder
				for _, lit := range lits {
					b.WriteString(decodeLiteral(lit))
				}
				if s := b.String(); s != "" {
					out = append(out, s)
				}
			}
			i = next
		default:
			i++
		}
	}

	return out
}

// readLiteral reads the literal string starting at data[start] == '('.
// It returns the unescaped bytes and the index after the closing paren.
func readLiteral(data []byte, start int) ([]byte, int) {
	var lit []byte
	depth := 1
	i := start + 1

	for i < len(data) {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				return lit, i
			}
			var n int
			lit, n = appendEscape(lit, data[i:])
			i += n
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return lit, i + 1
			}
		}
		lit = append(lit, c)
		i++
	}

	return lit, i
}

// appendEscape decodes the escape sequence at the start of rest (the byte
// after the backslash) and reports how many bytes it consumed.
func appendEscape(lit, rest []byte) ([]byte, int) {
	switch c := rest[0]; c {
	case 'n':
		return append(lit, '\n'), 1
	case 'r':
		return append(lit, '\r'), 1
	case 't':
		return append(lit, '\t'), 1
	case 'b':
		return append(lit, '\b'), 1
	case 'f':
		return append(lit, '\f'), 1
	case '\r':
		// Line continuation.
		if len(rest) > 1 && rest[1] == '\n' {
			return lit, 2
		}
		return lit, 1
	case '\n':
		return lit, 1
	default:
		if c >= '0' && c <= '7' {
			v, n := 0, 0
			for n < 3 && n < len(rest) && rest[n] >= '0' && rest[n] <= '7' {
				v = v*8 + int(rest[n]-'0')
				n++
			}
			return append(lit, byte(v)), n
		}
		return append(lit, c), 1
	}
}

// readArray reads a TJ operand array starting at data[start] == '[' and
// returns its literal elements and the index after the closing bracket.
func readArray(data []byte, start int) ([][]byte, int) {
	var lits [][]byte
	i := start + 1

	for i < len(data) {
		switch data[i] {
		case ']':
			return lits, i + 1
		case '(':
			var lit []byte
			lit, i = readLiteral(data, i)
			lits = append(lits, lit)
		case '[':
			// Nested arrays are not valid TJ operands.
			return nil, i
		default:
			i++
		}
	}

	return lits, i
}

// nextOperator returns the operator token following position i, skipping
// whitespace.
func nextOperator(data []byte, i int) string {
	for i < len(data) && isPDFSpace(data[i]) {
		i++
	}
	start := i
	for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
		i++
	}
	return string(data[start:i])
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// decodeLiteral converts literal bytes to text. Bytes that are not UTF-8
// are read as Windows-1252, a superset of the printable PDFDocEncoding
// range used by simple fonts.
func decodeLiteral(lit []byte) string {
	if utf8.Valid(lit) {
		return string(lit)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(lit)
	if err != nil {
		return strings.ToValidUTF8(string(lit), "")
	}
	return string(s)
}
