package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scriptorium/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "scriptorium.db"

// HistoryDB stores finished runs and their ledgers.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		total_codes INTEGER NOT NULL DEFAULT 0,
		resolved INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per obtained code, seq preserves ledger order
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		source TEXT NOT NULL,
		item_title TEXT NOT NULL,
		century_label TEXT NOT NULL,
		input_code TEXT,
		output_code TEXT NOT NULL,
		strategy TEXT,
		document_digest TEXT,
		recorded_at TEXT NOT NULL,
		UNIQUE(run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_code ON ledger_entries(output_code);
	`

	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores a finished run and its ledger in one transaction and
// returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (site, started_at, finished_at, pages_visited, total_codes, resolved, failed, interrupted, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Site,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.PagesVisited,
		report.TotalCodes(),
		report.ResolvedCount(),
		report.FailureCount(),
		report.Interrupted,
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO ledger_entries (run_id, seq, source, item_title, century_label, input_code, output_code, strategy, document_digest, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range report.Ledger.Entries() {
		if _, err := stmt.ExecContext(ctx,
			runID,
			i,
			string(e.Source),
			e.ItemTitle,
			e.CenturyLabel,
			e.InputCode,
			e.OutputCode,
			e.Strategy,
			e.DocumentDigest,
			formatTimestamp(e.RecordedAt),
		); err != nil {
			return 0, fmt.Errorf("failed to save ledger entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RunSummary is one row of the run list. It is read without decoding the
// stored report.
type RunSummary struct {
	ID           int64
	Site         string
	StartedAt    time.Time
	FinishedAt   time.Time
	PagesVisited int
	TotalCodes   int
	Resolved     int
	Failed       int
	Interrupted  bool
	Error        string

	// FinalCode is the last code in the run's ledger, if any.
	FinalCode string
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// ListRuns returns the most recent runs first. An empty site lists every
// site; a limit of zero or less returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, site string, limit int) ([]RunSummary, error) {
	query := `
	SELECT r.id, r.site, r.started_at, r.finished_at, r.pages_visited, r.total_codes,
		r.resolved, r.failed, r.interrupted, COALESCE(r.error, ''),
		COALESCE((SELECT l.output_code FROM ledger_entries l WHERE l.run_id = r.id ORDER BY l.seq DESC LIMIT 1), '')
	FROM runs r
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if site != "" {
		query += " AND r.site = ?"
		args = append(args, site)
	}

	query += " ORDER BY r.started_at DESC, r.id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished string

		if err := rows.Scan(
			&s.ID,
			&s.Site,
			&started,
			&finished,
			&s.PagesVisited,
			&s.TotalCodes,
			&s.Resolved,
			&s.Failed,
			&s.Interrupted,
			&s.Error,
			&s.FinalCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRun returns the stored report of a run.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if report.Ledger == nil {
		report.Ledger = model.NewLedger()
	}

	return &report, nil
}

// GetLedger rebuilds the ledger of a run from its entry rows.
func (h *HistoryDB) GetLedger(ctx context.Context, runID int64) (*model.Ledger, error) {
	var exists int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT source, item_title, century_label, COALESCE(input_code, ''), output_code,
		COALESCE(strategy, ''), COALESCE(document_digest, ''), recorded_at
	FROM ledger_entries
	WHERE run_id = ?
	ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	ledger := model.NewLedger()
	for rows.Next() {
		var e model.LedgerEntry
		var source, recorded string

		if err := rows.Scan(
			&source,
			&e.ItemTitle,
			&e.CenturyLabel,
			&e.InputCode,
			&e.OutputCode,
			&e.Strategy,
			&e.DocumentDigest,
			&recorded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		e.Source = model.Source(source)
		e.RecordedAt = parseTimestamp(recorded)
		ledger.Append(e)
	}

	return ledger, rows.Err()
}

// CodeOccurrence is a stored ledger entry found by code.
type CodeOccurrence struct {
	RunID int64
	Site  string
	Entry model.LedgerEntry
}

// FindCode returns every stored ledger entry whose output code is code,
// newest run first.
func (h *HistoryDB) FindCode(ctx context.Context, code string) ([]CodeOccurrence, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT r.id, r.site, l.source, l.item_title, l.century_label, COALESCE(l.input_code, ''),
		l.output_code, COALESCE(l.strategy, ''), COALESCE(l.document_digest, ''), l.recorded_at
	FROM ledger_entries l
	JOIN runs r ON r.id = l.run_id
	WHERE l.output_code = ?
	ORDER BY r.started_at DESC, r.id DESC, l.seq
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find code: %w", err)
	}
	defer rows.Close()

	var results []CodeOccurrence
	for rows.Next() {
		var o CodeOccurrence
		var source, recorded string

		if err := rows.Scan(
			&o.RunID,
			&o.Site,
			&source,
			&o.Entry.ItemTitle,
			&o.Entry.CenturyLabel,
			&o.Entry.InputCode,
			&o.Entry.OutputCode,
			&o.Entry.Strategy,
			&o.Entry.DocumentDigest,
			&recorded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan code: %w", err)
		}

		o.Entry.Source = model.Source(source)
		o.Entry.RecordedAt = parseTimestamp(recorded)
		results = append(results, o)
	}

	return results, rows.Err()
}

// DeleteRun removes a run and its ledger entries.
func (h *HistoryDB) DeleteRun(ctx context.Context, id int64) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}

	return tx.Commit()
}

// timestampLayout is fixed width so that lexical order matches
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores times as UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored timestamp, returning the zero time when
// no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
