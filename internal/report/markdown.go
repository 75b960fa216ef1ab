package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/scriptorium/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeLedger(md, report.Ledger)
	w.writeItems(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteLedger outputs the codes table only.
func (w *MarkdownWriter) WriteLedger(ledger *model.Ledger) (int, error) {
	md := markdown.NewMarkdown(w.output)
	w.writeLedger(md, ledger)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Scriptorium Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Site", "`" + report.Site + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(1e6).String()},
			{"Pages Visited", strconv.Itoa(report.PagesVisited)},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	if report.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	pdf := report.Ledger.CountBySource(model.SourcePDF)
	api := report.Ledger.CountBySource(model.SourceAPI)

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"📄 Codes from PDF", strconv.Itoa(pdf)},
			{"🔐 Codes from API", strconv.Itoa(api)},
			{"✅ Items resolved", strconv.Itoa(report.ResolvedCount())},
			{"❌ Items failed", strconv.Itoa(report.FailureCount())},
			{"**Total codes**", "**" + strconv.Itoa(report.TotalCodes()) + "**"},
		},
	})
	md.PlainText("")

	if report.TotalCodes() > 0 {
		w.writePieChart(md, pdf, api)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of codes by source.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, pdf, api int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Codes by Source"),
		piechart.WithShowData(true),
	)

	if pdf > 0 {
		chart.LabelAndIntValue("PDF", uint64(pdf)) //nolint:gosec // count is never negative
	}
	if api > 0 {
		chart.LabelAndIntValue("API", uint64(api)) //nolint:gosec // count is never negative
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch {
	case report.Interrupted:
		md.Cautionf(
			"The run was interrupted after %d item(s). The codes below are partial.",
			len(report.Items),
		)
	case report.ErrorMessage != "":
		md.Cautionf("The run stopped with an error: %s", report.ErrorMessage)
	case report.FailureCount() > 0:
		md.Warningf(
			"%d item(s) failed. See the Items section for the stage each one stopped at.",
			report.FailureCount(),
		)
	case report.TotalCodes() == 0:
		md.Importantf("No codes were obtained from %d item(s).", len(report.Items))
	default:
		md.Tip("Every item was processed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeLedger(md *markdown.Markdown, ledger *model.Ledger) {
	md.H2("Codes")
	md.PlainText("")

	entries := ledger.Entries()
	if len(entries) == 0 {
		md.PlainText("No codes obtained.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			string(e.Source),
			truncateString(e.ItemTitle, 40),
			e.CenturyLabel,
			"`" + entryLabel(e) + "`",
			orDash(e.Strategy),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Source", "Item", "Century", "Code", "Strategy"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeItems(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Items")
	md.PlainText("")

	if len(report.Items) == 0 {
		md.PlainText("No items processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Items))
	for i, it := range report.Items {
		rows[i] = []string{
			truncateString(it.Item.Title, 40),
			it.Item.CenturyLabel,
			it.Item.AccessState.String(),
			string(it.Status),
			orDash(it.Stage),
			orDash(it.Code),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Item", "Century", "Access", "Status", "Stage", "Code"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, it := range report.Items {
		if it.Error != "" {
			md.Details(it.Item.Title, it.Error)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [scriptorium](https://github.com/nao1215/scriptorium)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
