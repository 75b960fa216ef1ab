package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "scriptorium"

	// DefaultItemTimeout bounds every wait for an unlock affordance or
	// confirmation dialog. A timeout fails the item, not the run.
	DefaultItemTimeout = 15 * time.Second

	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultPollInterval is how often a page is re-fetched while waiting.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultDownloadAttempts and DefaultRetryDelay drive the download manager.
	DefaultDownloadAttempts = 3
	DefaultRetryDelay       = 2 * time.Second

	// DefaultMaxPages stops pagination on catalogs that never end.
	DefaultMaxPages = 50

	// DefaultLoginPath is the login page, relative to the base URL.
	DefaultLoginPath = "/login"

	// DefaultUserAgent identifies scriptorium in HTTP requests.
	DefaultUserAgent = "scriptorium/1.0 (+https://github.com/nao1215/scriptorium)"
)

// DefaultTitlePrefixes are stripped from documentation titles before the
// challenge API is queried.
var DefaultTitlePrefixes = []string{"Documentación de ", "Documentación: ", "Documentation for "}

// Config holds all options for a run. It is built once from defaults, the
// config file, the environment and flags, then passed down explicitly.
type Config struct {
	// BaseURL is the catalog site root.
	BaseURL string

	// APIURL is the challenge API root. Defaults to BaseURL.
	APIURL string

	// LoginPath is the login page relative to BaseURL.
	LoginPath string

	// Email and Password authenticate against the catalog.
	Email    string
	Password string

	// DownloadDir receives downloaded documents.
	DownloadDir string

	// TitlePrefixes are removed from documentation titles, first match wins.
	TitlePrefixes []string

	// Selectors describe the site markup.
	Selectors Selectors

	// ItemTimeout bounds waits for unlock outcomes.
	ItemTimeout time.Duration

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration

	// PollInterval is the page re-fetch interval while waiting.
	PollInterval time.Duration

	// DownloadAttempts and RetryDelay configure download retries.
	DownloadAttempts int
	RetryDelay       time.Duration

	// MaxPages limits how many listing pages are walked.
	MaxPages int

	// UserAgent is sent with every request.
	UserAgent string

	// Verbose enables debug logging; LogJSON switches to JSON log lines.
	Verbose bool
	LogJSON bool

	// ConfigFilePath is an explicit config file location.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the report format. Mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile receives the report instead of stdout when set.
	ReportFile string

	// DBDir holds the run history database; SaveToDB enables it.
	DBDir    string
	SaveToDB bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LoginPath:        DefaultLoginPath,
		DownloadDir:      XDGDownloadDir(),
		TitlePrefixes:    append([]string(nil), DefaultTitlePrefixes...),
		Selectors:        DefaultSelectors(),
		ItemTimeout:      DefaultItemTimeout,
		RequestTimeout:   DefaultRequestTimeout,
		PollInterval:     DefaultPollInterval,
		DownloadAttempts: DefaultDownloadAttempts,
		RetryDelay:       DefaultRetryDelay,
		MaxPages:         DefaultMaxPages,
		UserAgent:        DefaultUserAgent,
		DBDir:            XDGDataDir(),
		SaveToDB:         true,
	}
}

// XDGDataDir returns the data directory holding the history database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the directory searched for the config file.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGDownloadDir returns the default document download directory.
func XDGDownloadDir() string {
	return filepath.Join(xdg.CacheHome, AppName, "downloads")
}

// ChallengeAPIURL returns APIURL, falling back to BaseURL.
func (c *Config) ChallengeAPIURL() string {
	if c.APIURL != "" {
		return c.APIURL
	}
	return c.BaseURL
}

// Validate checks the configuration needed for a run and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if err := validateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base URL: %w", err)
	}
	if c.APIURL != "" {
		if err := validateURL(c.APIURL); err != nil {
			return fmt.Errorf("API URL: %w", err)
		}
	}
	if c.Email == "" || c.Password == "" {
		return ErrNoCredentials
	}
	if c.ItemTimeout <= 0 || c.RequestTimeout <= 0 || c.PollInterval <= 0 {
		return ErrInvalidTimeout
	}
	if c.DownloadAttempts <= 0 {
		return ErrInvalidAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return c.Selectors.Validate()
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
