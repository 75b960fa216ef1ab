package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoBaseURL is returned when the catalog URL is missing.
	ErrNoBaseURL = errors.New("no catalog URL: set baseURL, SCRIPTORIUM_BASE_URL or --base-url")

	// ErrInvalidURL is returned when a configured URL is not absolute http(s).
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")

	// ErrNoCredentials is returned when the login email or password is missing.
	ErrNoCredentials = errors.New("no login credentials: set SCRIPTORIUM_EMAIL and SCRIPTORIUM_PASSWORD")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidAttempts is returned when download attempts is not positive.
	ErrInvalidAttempts = errors.New("invalid download attempts: must be positive")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrMissingSelector is returned when a required selector is empty.
	ErrMissingSelector = errors.New("missing selector")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
