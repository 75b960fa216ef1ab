package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/scriptorium/internal/browser"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/model"
)

// LoginStep signs in to the catalog with the configured credentials.
type LoginStep struct {
	page     browser.Page
	loginURL string
	email    string
	password string
	sel      config.Selectors
	timeout  time.Duration
	logger   *slog.Logger
}

// LoginStepOption configures a LoginStep.
type LoginStepOption func(*LoginStep)

// WithLoginSelectors sets the selectors of the login form.
func WithLoginSelectors(sel config.Selectors) LoginStepOption {
	return func(s *LoginStep) {
		s.sel = sel
	}
}

// WithLoginTimeout bounds the wait for the logged-in marker.
func WithLoginTimeout(d time.Duration) LoginStepOption {
	return func(s *LoginStep) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLoginLogger sets a custom logger for the login step.
func WithLoginLogger(logger *slog.Logger) LoginStepOption {
	return func(s *LoginStep) {
		s.logger = logger
	}
}

// NewLoginStep creates a login step. loginURL may be relative to the
// page's base URL.
func NewLoginStep(page browser.Page, loginURL, email, password string, opts ...LoginStepOption) *LoginStep {
	s := &LoginStep{
		page:     page,
		loginURL: loginURL,
		email:    email,
		password: password,
		sel:      config.DefaultSelectors(),
		timeout:  config.DefaultItemTimeout,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoginStep) Name() string {
	return "login"
}

// Do executes the login step. Any failure wraps ErrLoginFailed.
func (s *LoginStep) Do(ctx context.Context, _ *model.RunReport) error {
	if err := s.page.Navigate(ctx, s.loginURL); err != nil {
		return fmt.Errorf("%w: open login page: %w", ErrLoginFailed, err)
	}
	if err := s.page.Fill(ctx, s.sel.EmailInput, s.email); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := s.page.Fill(ctx, s.sel.PasswordInput, s.password); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if err := s.page.Click(ctx, s.sel.LoginSubmit); err != nil {
		return fmt.Errorf("%w: submit: %w", ErrLoginFailed, err)
	}
	if _, err := s.page.WaitForSelector(ctx, s.sel.LoggedIn, s.timeout); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	s.logger.Info("logged in", "email", s.email, "url", s.page.CurrentURL())
	return nil
}

// ItemProcessor scans a catalog page and processes its items.
// *sequencer.Sequencer implements it.
type ItemProcessor interface {
	ScanCatalog(ctx context.Context) ([]model.CatalogItem, error)
	ProcessPage(ctx context.Context, items []model.CatalogItem, credential string, ledger *model.Ledger) (string, []model.ItemResult)
}

// CatalogStep walks the catalog pages and processes every item. The
// credential obtained on one page carries over to the next.
type CatalogStep struct {
	page     browser.Page
	items    ItemProcessor
	sel      config.Selectors
	maxPages int
	timeout  time.Duration
	logger   *slog.Logger
}

// CatalogStepOption configures a CatalogStep.
type CatalogStepOption func(*CatalogStep)

// WithCatalogSelectors sets the card and pagination selectors.
func WithCatalogSelectors(sel config.Selectors) CatalogStepOption {
	return func(s *CatalogStep) {
		s.sel = sel
	}
}

// WithCatalogMaxPages limits the number of listing pages walked.
func WithCatalogMaxPages(maxPages int) CatalogStepOption {
	return func(s *CatalogStep) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithCatalogTimeout bounds the wait for cards on each page.
func WithCatalogTimeout(d time.Duration) CatalogStepOption {
	return func(s *CatalogStep) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCatalogLogger sets a custom logger for the catalog step.
func WithCatalogLogger(logger *slog.Logger) CatalogStepOption {
	return func(s *CatalogStep) {
		s.logger = logger
	}
}

// NewCatalogStep creates a catalog step.
func NewCatalogStep(page browser.Page, items ItemProcessor, opts ...CatalogStepOption) *CatalogStep {
	s := &CatalogStep{
		page:     page,
		items:    items,
		sel:      config.DefaultSelectors(),
		maxPages: config.DefaultMaxPages,
		timeout:  config.DefaultItemTimeout,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CatalogStep) Name() string {
	return "catalog"
}

// Do executes the catalog step. Item failures are recorded in the report;
// only scan, pagination and cancellation errors are returned.
func (s *CatalogStep) Do(ctx context.Context, report *model.RunReport) error {
	credential := ""

	for n := 1; ; n++ {
		if _, err := s.page.WaitForSelector(ctx, s.sel.Card, s.timeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("no items on page", "page", n, "url", s.page.CurrentURL())
		}

		items, err := s.items.ScanCatalog(ctx)
		if err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}
		report.PagesVisited++
		s.logger.Info("processing catalog page", "page", n, "items", len(items))

		var results []model.ItemResult
		credential, results = s.items.ProcessPage(ctx, items, credential, report.Ledger)
		for _, r := range results {
			report.AddItemResult(r)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := s.page.QueryAll(ctx, s.sel.NextPage)
		if err != nil || len(next) == 0 {
			return nil
		}
		if n >= s.maxPages {
			s.logger.Warn("page limit reached", "max_pages", s.maxPages)
			return nil
		}
		if err := s.page.Click(ctx, s.sel.NextPage); err != nil {
			return fmt.Errorf("go to page %d: %w", n+1, err)
		}
	}
}

// DefaultPipeline creates the standard run: log in, then walk the catalog.
func DefaultPipeline(cfg *config.Config, page browser.Page, items ItemProcessor, opts ...Option) *Pipeline {
	p := New(nil, opts...)

	p.steps = []Step{
		NewLoginStep(page, cfg.LoginPath, cfg.Email, cfg.Password,
			WithLoginSelectors(cfg.Selectors),
			WithLoginTimeout(cfg.RequestTimeout),
			WithLoginLogger(p.logger),
		),
		NewCatalogStep(page, items,
			WithCatalogSelectors(cfg.Selectors),
			WithCatalogMaxPages(cfg.MaxPages),
			WithCatalogTimeout(cfg.ItemTimeout),
			WithCatalogLogger(p.logger),
		),
	}

	return p
}
