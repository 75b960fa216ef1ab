package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/scriptorium/internal/browser"
)

// Defaults for Manager.
const (
	DefaultAttempts      = 3
	DefaultRetryDelay    = 2 * time.Second
	DefaultPollInterval  = 250 * time.Millisecond
	DefaultStableChecks  = 2
	DefaultStableTimeout = 30 * time.Second
)

// Result describes a finished download.
type Result struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Size     int64  `json:"size"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Manager downloads documents into a directory.
type Manager struct {
	page          browser.Page
	dir           string
	attempts      int
	retryDelay    time.Duration
	pollInterval  time.Duration
	stableChecks  int
	stableTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithAttempts sets the number of attempts per download.
func WithAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.retryDelay = d
		}
	}
}

// WithStability sets how often the file size is sampled, how many equal
// consecutive samples count as settled, and how long to wait overall.
func WithStability(interval time.Duration, checks int, timeout time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
		if checks > 0 {
			m.stableChecks = checks
		}
		if timeout > 0 {
			m.stableTimeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager that saves files under dir.
func NewManager(page browser.Page, dir string, opts ...Option) *Manager {
	m := &Manager{
		page:          page,
		dir:           dir,
		attempts:      DefaultAttempts,
		retryDelay:    DefaultRetryDelay,
		pollInterval:  DefaultPollInterval,
		stableChecks:  DefaultStableChecks,
		stableTimeout: DefaultStableTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the destination directory.
func (m *Manager) Dir() string {
	return m.dir
}

// HandleDownload clicks trigger, saves the document as name (or the
// server-suggested name when name is empty) and waits for it to settle.
// The returned error wraps ErrDownloadFailed after the last attempt.
func (m *Manager) HandleDownload(ctx context.Context, trigger, name string) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= m.attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, m.retryDelay); err != nil {
				return Result{Attempts: attempt - 1, Error: err.Error()}, err
			}
		}

		path, size, err := m.fetch(ctx, trigger, name)
		if err == nil {
			m.logger.Debug("download complete", "file", path, "size", size, "attempt", attempt)
			return Result{Success: true, FilePath: path, Size: size, Attempts: attempt}, nil
		}
		if ctx.Err() != nil {
			return Result{Attempts: attempt, Error: ctx.Err().Error()}, ctx.Err()
		}

		lastErr = err
		m.logger.Warn("download attempt failed", "trigger", trigger, "attempt", attempt, "of", m.attempts, "error", err)
	}

	err := fmt.Errorf("%w after %d attempts: %w", ErrDownloadFailed, m.attempts, lastErr)
	return Result{Attempts: m.attempts, Error: err.Error()}, err
}

// fetch performs one attempt.
func (m *Manager) fetch(ctx context.Context, trigger, name string) (string, int64, error) {
	dl, err := m.page.Download(ctx, trigger)
	if err != nil {
		return "", 0, err
	}
	defer dl.Body.Close()

	if name == "" {
		name = dl.Name
	}
	path, err := m.destination(name)
	if err != nil {
		return "", 0, err
	}

	if err := writeFile(path, dl.Body); err != nil {
		return "", 0, err
	}

	size, err := m.waitStable(ctx, path)
	if err != nil {
		return "", 0, err
	}
	return path, size, nil
}

// destination returns the file path for name inside the download directory.
func (m *Manager) destination(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document.pdf"
	}
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}
	return filepath.Join(m.dir, name), nil
}

func writeFile(path string, body io.Reader) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // path is built from a sanitized base name
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// waitStable polls the size of path until it has been identical for
// stableChecks consecutive samples.
func (m *Manager) waitStable(ctx context.Context, path string) (int64, error) {
	deadline := time.Now().Add(m.stableTimeout)
	last := int64(-1)
	same := 0

	for {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", path, err)
		}

		size := info.Size()
		if size == last {
			same++
		} else {
			same = 1
			last = size
		}
		if same >= m.stableChecks {
			if size == 0 {
				return 0, ErrEmptyDownload
			}
			return size, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: %s", ErrUnstable, path)
		}
		if err := sleep(ctx, m.pollInterval); err != nil {
			return 0, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsFailure reports whether err came from exhausting all attempts.
func IsFailure(err error) bool {
	return errors.Is(err, ErrDownloadFailed)
}
