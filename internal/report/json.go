package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/scriptorium/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in JSON format.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// WriteLedger outputs the ledger as a JSON array.
func (w *JSONWriter) WriteLedger(ledger *model.Ledger) (int, error) {
	return w.writeJSON(ledger)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}

// Summary holds the headline counts of a run.
type Summary struct {
	TotalCodes int `json:"total_codes"`
	PDFCodes   int `json:"pdf_codes"`
	APICodes   int `json:"api_codes"`
	Resolved   int `json:"resolved"`
	Failed     int `json:"failed"`

	// FinalCode is the last code in the ledger.
	FinalCode string `json:"final_code,omitempty"`
}

// NewSummary computes the summary of report.
func NewSummary(report *model.RunReport) Summary {
	s := Summary{
		TotalCodes: report.TotalCodes(),
		PDFCodes:   report.Ledger.CountBySource(model.SourcePDF),
		APICodes:   report.Ledger.CountBySource(model.SourceAPI),
		Resolved:   report.ResolvedCount(),
		Failed:     report.FailureCount(),
	}
	if last, ok := report.Ledger.Last(); ok {
		s.FinalCode = last.OutputCode
	}
	return s
}

// JSONReport wraps a run report with the tool version and a summary.
type JSONReport struct {
	// Version is the scriptorium version that generated this report.
	Version string `json:"version"`

	Summary Summary          `json:"summary"`
	Report  *model.RunReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.RunReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: NewSummary(report),
		Report:  report,
	}
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
