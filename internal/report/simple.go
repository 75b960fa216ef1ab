package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/scriptorium/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists resolved items as well as failed ones.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeCodes(&sb, report.Ledger)
	w.writeItems(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteLedger outputs one line per obtained code.
func (w *SimpleWriter) WriteLedger(ledger *model.Ledger) (int, error) {
	var sb strings.Builder
	for _, e := range ledger.Entries() {
		sb.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\n", e.Source, e.ItemTitle, e.CenturyLabel, entryLabel(e)))
	}
	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      SCRIPTORIUM RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Site:           %s\n", report.Site))
	sb.WriteString(fmt.Sprintf("Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", report.Duration().Round(1e6)))
	sb.WriteString(fmt.Sprintf("Pages Visited:  %d\n", report.PagesVisited))
	sb.WriteString(fmt.Sprintf("Status:         %s\n", status(report)))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  CODES:    %d (PDF %d, API %d)\n",
		report.TotalCodes(),
		report.Ledger.CountBySource(model.SourcePDF),
		report.Ledger.CountBySource(model.SourceAPI)))
	sb.WriteString(fmt.Sprintf("  RESOLVED: %d\n", report.ResolvedCount()))
	sb.WriteString(fmt.Sprintf("  FAILED:   %d\n", report.FailureCount()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCodes(sb *strings.Builder, ledger *model.Ledger) {
	entries := ledger.Entries()
	if len(entries) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("CODES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(entries) == 0 {
		sb.WriteString("  No codes obtained\n\n")
		return
	}
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("  [%s] %s (siglo %s): %s\n", e.Source, e.ItemTitle, e.CenturyLabel, entryLabel(e)))
		if w.verbose && e.Strategy != "" {
			sb.WriteString(fmt.Sprintf("        via %s\n", e.Strategy))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeItems(sb *strings.Builder, report *model.RunReport) {
	if report.FailureCount() == 0 && !w.verbose && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ITEMS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Items) == 0 {
		sb.WriteString("  No items processed\n\n")
		return
	}
	for _, it := range report.Items {
		if !it.Failed() && !w.verbose {
			continue
		}
		mark := "+"
		if it.Failed() {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", mark, it.Item))
		sb.WriteString(fmt.Sprintf("      stage: %s\n", orDash(it.Stage)))
		if it.Error != "" {
			sb.WriteString(fmt.Sprintf("      error: %s\n", it.Error))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by scriptorium\n")
	sb.WriteString("https://github.com/nao1215/scriptorium\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
