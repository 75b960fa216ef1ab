package report

import (
	"io"

	"github.com/nao1215/scriptorium/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the full run report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteLedger outputs only the codes of a run.
	WriteLedger(ledger *model.Ledger) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteLedger outputs the ledger to all configured Writers.
func (m *MultiWriter) WriteLedger(ledger *model.Ledger) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteLedger(ledger)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// status summarises how a run ended.
func status(report *model.RunReport) string {
	switch {
	case report.Interrupted:
		return "Interrupted (partial results)"
	case report.ErrorMessage != "":
		return "Error - " + report.ErrorMessage
	default:
		return "Complete"
	}
}

// entryLabel renders a ledger entry as "ABCD1234" or "EFGH5678 -> KELLS1234".
func entryLabel(e model.LedgerEntry) string {
	if e.InputCode == "" {
		return e.OutputCode
	}
	return e.InputCode + " -> " + e.OutputCode
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
