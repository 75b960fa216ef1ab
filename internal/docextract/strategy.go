package docextract

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinTextLength is the number of characters a strategy must exceed for its
// output to be accepted.
const MinTextLength = 10

// Strategy names, in default order.
const (
	StrategyReaderPlainText = "reader-plain-text"
	StrategyPageFonts       = "page-plain-text-fonts"
	StrategyContentGlyphs   = "page-content-glyphs"
	StrategyPageRows        = "page-rows"
)

// Options configures how a strategy walks a document.
type Options struct {
	// LoadFonts decodes each page with its own font dictionary.
	LoadFonts bool

	// LineBreaks inserts a newline whenever the glyph baseline changes.
	LineBreaks bool

	// WordGap is the horizontal gap, as a fraction of the font size, above
	// which two glyph runs are separated by a space. Zero disables spacing.
	WordGap float64
}

// ExtractFunc turns an opened document into text.
type ExtractFunc func(r *pdf.Reader, opts Options) (string, error)

// Strategy is one named way of reading text out of a document.
type Strategy struct {
	Name    string
	Options Options
	Extract ExtractFunc
}

// DefaultStrategies returns the strategy cascade in the order it is tried.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{
			Name:    StrategyReaderPlainText,
			Extract: readerPlainText,
		},
		{
			Name:    StrategyPageFonts,
			Options: Options{LoadFonts: true},
			Extract: pagePlainText,
		},
		{
			Name:    StrategyContentGlyphs,
			Options: Options{LineBreaks: true, WordGap: 0.2},
			Extract: contentGlyphs,
		},
		{
			Name:    StrategyPageRows,
			Extract: pageRows,
		},
	}
}

// FirstSuccess runs strategies in order against buf and returns the first
// output longer than MinTextLength characters together with the name of the
// strategy that produced it. Strategy errors and panics count as failures.
func FirstSuccess(buf []byte, strategies []Strategy, logger *slog.Logger) (text, name string, ok bool) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range strategies {
		out, err := runStrategy(buf, s)
		if err != nil {
			logger.Debug("extraction strategy failed", "strategy", s.Name, "error", err)
			continue
		}
		out = strings.TrimSpace(out)
		if utf8.RuneCountInString(out) <= MinTextLength {
			logger.Debug("extraction strategy produced too little text", "strategy", s.Name, "chars", utf8.RuneCountInString(out))
			continue
		}
		return out, s.Name, true
	}
	return "", "", false
}

// runStrategy opens a fresh reader for a single strategy. The pdf package
// panics on some malformed inputs; those panics become errors here.
func runStrategy(buf []byte, s Strategy) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()

	if s.Extract == nil {
		return "", fmt.Errorf("strategy %s has no extractor", s.Name)
	}
	r, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	return s.Extract(r, s.Options)
}

// readerPlainText uses the reader-wide plain text extraction.
func readerPlainText(r *pdf.Reader, _ Options) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pagePlainText extracts each page separately, optionally with the page's
// fonts loaded so their encodings are honoured.
func pagePlainText(r *pdf.Reader, opts Options) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		var fonts map[string]*pdf.Font
		if opts.LoadFonts {
			fonts = make(map[string]*pdf.Font)
			for _, name := range page.Fonts() {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// contentGlyphs rebuilds text from positioned glyph runs.
func contentGlyphs(r *pdf.Reader, opts Options) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		var prev *pdf.Text
		for _, t := range page.Content().Text {
			if prev != nil {
				switch {
				case opts.LineBreaks && math.Abs(t.Y-prev.Y) > 0.5:
					b.WriteString("\n")
				case opts.WordGap > 0 && t.X-(prev.X+prev.W) > opts.WordGap*prev.FontSize:
					b.WriteString(" ")
				}
			}
			b.WriteString(t.S)
			cur := t
			prev = &cur
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// pageRows groups text by row and joins each row's words with spaces.
func pageRows(r *pdf.Reader, _ Options) (string, error) {
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
