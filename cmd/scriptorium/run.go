package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/scriptorium/internal/browser"
	"github.com/nao1215/scriptorium/internal/cipher"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/database"
	"github.com/nao1215/scriptorium/internal/docextract"
	"github.com/nao1215/scriptorium/internal/download"
	"github.com/nao1215/scriptorium/internal/model"
	"github.com/nao1215/scriptorium/internal/pipeline"
	"github.com/nao1215/scriptorium/internal/report"
	"github.com/nao1215/scriptorium/internal/sequencer"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and recover the unlock code chain of the catalog",
		Long: `Run logs in to the catalog and walks every listing page. On each page the
manuscripts are processed oldest century first:

- Unlocked items are downloaded and their document searched for a code.
- Locked items are opened with the most recent code.
- Challenge items query the challenge API with their documentation title and
  the most recent code, then are opened with the answer.

Every code found becomes the credential for the next item. An item that fails
is reported and skipped; the run goes on. Ctrl-C stops the run and still
writes the report of what was done.

Examples:
  # Credentials from the environment, catalog URL from the flag
  SCRIPTORIUM_EMAIL=reader@example.org SCRIPTORIUM_PASSWORD=... \
    scriptorium run --base-url https://catalog.example.org

  # Markdown report to a file
  scriptorium run -m -o reports/run.md

  # Only print the codes, as JSON
  scriptorium run -j --codes-only`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().String("base-url", "", "Catalog site root (overrides "+config.EnvBaseURL+")")
	cmd.Flags().String("api-url", "", "Challenge API root (default: base URL)")
	cmd.Flags().String("email", "", "Login email (overrides "+config.EnvEmail+")")
	cmd.Flags().String("download-dir", "", "Directory receiving downloaded documents")

	cmd.Flags().Duration("item-timeout", config.DefaultItemTimeout,
		"Wait for an unlock result before failing the item")
	cmd.Flags().Duration("request-timeout", config.DefaultRequestTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of listing pages to walk")
	cmd.Flags().Int("attempts", config.DefaultDownloadAttempts,
		"Download attempts per document")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("codes-only", false, "Report only the obtained codes")
	cmd.Flags().Bool("no-history", false, "Do not record the run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory holding the history database")

	return cmd
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	codesOnly, err := cmd.Flags().GetBool("codes-only")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing report...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCatalog(ctx, cfg, logger, cmd.OutOrStdout(), codesOnly)
}

// buildConfig layers defaults, the config file, the environment and the
// command flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.ApplyFile(file); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(nil)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	for name, dst := range map[string]*string{
		"base-url":     &cfg.BaseURL,
		"api-url":      &cfg.APIURL,
		"email":        &cfg.Email,
		"download-dir": &cfg.DownloadDir,
		"output":       &cfg.ReportFile,
		"db-dir":       &cfg.DBDir,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	for name, dst := range map[string]*time.Duration{
		"item-timeout":    &cfg.ItemTimeout,
		"request-timeout": &cfg.RequestTimeout,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	for name, dst := range map[string]*int{
		"max-pages": &cfg.MaxPages,
		"attempts":  &cfg.DownloadAttempts,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	var err error
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return err
	}
	cfg.SaveToDB = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return err
	}
	return nil
}

// runCatalog wires the components, executes the run and writes the report.
// The report is written and saved even when the run fails or is interrupted.
func runCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer, codesOnly bool) error {
	sess, err := browser.NewSession(cfg.BaseURL,
		browser.WithLogger(logger),
		browser.WithPollInterval(cfg.PollInterval),
		browser.WithRequestTimeout(cfg.RequestTimeout),
		browser.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("failed to create browser session: %w", err)
	}

	api, err := cipher.NewClient(cfg.ChallengeAPIURL(),
		cipher.WithLogger(logger),
		cipher.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge client: %w", err)
	}

	downloads := download.NewManager(sess, cfg.DownloadDir,
		download.WithAttempts(cfg.DownloadAttempts),
		download.WithRetryDelay(cfg.RetryDelay),
		download.WithLogger(logger),
	)

	seq := sequencer.New(sess, downloads, docextract.New(docextract.WithLogger(logger)), api,
		sequencer.WithConfig(cfg),
		sequencer.WithLogger(logger),
	)

	p := pipeline.DefaultPipeline(cfg, sess, seq, pipeline.WithLogger(logger))

	logger.Info("starting run",
		"site", cfg.BaseURL,
		"downloadDir", cfg.DownloadDir,
		"maxPages", cfg.MaxPages,
		"saveToDB", cfg.SaveToDB,
	)

	runReport := model.NewRunReport(cfg.BaseURL)
	runErr := p.Execute(ctx, runReport)
	runReport.Finish(runErr)

	logger.Info("run finished",
		"codes", runReport.TotalCodes(),
		"failed", runReport.FailureCount(),
		"pages", runReport.PagesVisited,
		"duration", runReport.Duration().Round(time.Millisecond),
	)

	if err := outputReport(cfg, runReport, stdout, codesOnly); err != nil {
		logger.Error("report failed", "error", err)
	}

	// A cancelled run context must not prevent recording what was done.
	if err := saveRun(context.WithoutCancel(ctx), cfg, runReport, logger); err != nil {
		logger.Error("failed to save run", "error", err)
	}

	if runErr != nil {
		if runReport.Interrupted {
			return fmt.Errorf("run interrupted: %w", runErr)
		}
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// newWriter returns the report writer for the configured format.
func newWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes the run report to stdout or cfg.ReportFile.
func outputReport(cfg *config.Config, runReport *model.RunReport, stdout io.Writer, codesOnly bool) error {
	output := stdout
	if cfg.ReportFile != "" {
		f, err := createReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		output = f
	}

	w := newWriter(cfg, output)
	if codesOnly {
		_, err := w.WriteLedger(runReport.Ledger)
		return err
	}
	_, err := w.Write(runReport)
	return err
}

// createReportFile creates path and its directories. Reports hold unlock
// codes, so the file is readable by the owner only.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// saveRun records the run in the history database when enabled.
func saveRun(ctx context.Context, cfg *config.Config, runReport *model.RunReport, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, runReport)
	if err != nil {
		return err
	}

	logger.Info("run saved to history", "runID", id, "db", db.Path())
	return nil
}

// isNotRecorded reports whether err means no history exists yet.
func isNotRecorded(err error) bool {
	return errors.Is(err, database.ErrDatabaseNotFound)
}
