package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `History lists the runs recorded by "run", newest first.

With --run-id the stored report of one run is printed in the same formats as
"run". With --find the runs that obtained a given code are listed, and
--delete removes one run together with its ledger.

Examples:
  scriptorium history
  scriptorium history --site https://catalog.example.org --limit 5
  scriptorium history --run-id 12 -m
  scriptorium history --run-id 12 --codes-only -j
  scriptorium history --find KELLS1234
  scriptorium history --delete 12`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64("run-id", 0, "Show the report of this run")
	cmd.Flags().String("site", "", "Only list runs against this catalog URL")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().String("find", "", "List every run that obtained this code")
	cmd.Flags().Int64("delete", 0, "Delete this run from the history")
	cmd.Flags().Bool("codes-only", false, "With --run-id, print only the codes")
	cmd.Flags().BoolP("json", "j", false, "With --run-id, output JSON")
	cmd.Flags().BoolP("markdown", "m", false, "With --run-id, output Markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory holding the history database")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	setupLogger(cmd)

	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if isNotRecorded(err) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	deleteID, err := flags.GetInt64("delete")
	if err != nil {
		return err
	}
	if deleteID != 0 {
		if err := db.DeleteRun(ctx, deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %d.\n", deleteID)
		return nil
	}

	runID, err := flags.GetInt64("run-id")
	if err != nil {
		return err
	}
	if runID != 0 {
		return showRun(ctx, cmd, db, runID, out)
	}

	code, err := flags.GetString("find")
	if err != nil {
		return err
	}
	if code != "" {
		return findCode(ctx, db, code, out)
	}

	site, err := flags.GetString("site")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	return listRuns(ctx, db, site, limit, out)
}

func listRuns(ctx context.Context, db *database.HistoryDB, site string, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, site, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"ID", "Site", "Started", "Duration", "Pages", "Codes", "Failed", "Status", "Final Code"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Site,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration().Round(time.Second),
			r.PagesVisited,
			r.TotalCodes,
			r.Failed,
			runStatus(r),
			dash(r.FinalCode),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func runStatus(r database.RunSummary) string {
	switch {
	case r.Interrupted:
		return "interrupted"
	case r.Error != "":
		return "error"
	default:
		return "complete"
	}
}

func showRun(ctx context.Context, cmd *cobra.Command, db *database.HistoryDB, runID int64, out io.Writer) error {
	flags := cmd.Flags()

	cfg := config.NewConfig()
	var err error
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return config.ErrConflictingReportFormats
	}
	cfg.Verbose = getVerboseFlag(cmd)

	codesOnly, err := flags.GetBool("codes-only")
	if err != nil {
		return err
	}

	w := newWriter(cfg, out)
	if codesOnly {
		ledger, err := db.GetLedger(ctx, runID)
		if err != nil {
			return err
		}
		_, err = w.WriteLedger(ledger)
		return err
	}

	runReport, err := db.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	_, err = w.Write(runReport)
	return err
}

func findCode(ctx context.Context, db *database.HistoryDB, code string, out io.Writer) error {
	found, err := db.FindCode(ctx, code)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintf(out, "Code %s was never obtained.\n", code)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Run", "Site", "Source", "Item", "Century", "From", "Recorded"})
	for _, o := range found {
		t.AppendRow(table.Row{
			strconv.FormatInt(o.RunID, 10),
			o.Site,
			string(o.Entry.Source),
			o.Entry.ItemTitle,
			o.Entry.CenturyLabel,
			dash(o.Entry.InputCode),
			o.Entry.RecordedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
