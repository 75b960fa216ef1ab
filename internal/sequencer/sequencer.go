package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nao1215/scriptorium/internal/browser"
	"github.com/nao1215/scriptorium/internal/cipher"
	"github.com/nao1215/scriptorium/internal/codematch"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/docextract"
	"github.com/nao1215/scriptorium/internal/download"
	"github.com/nao1215/scriptorium/internal/model"
)

// Stages reported in model.ItemResult.Stage.
const (
	StageCredential    = "credential"
	StageUnlock        = "unlock"
	StageDownload      = "download"
	StageExtract       = "extract"
	StageNoCode        = "no-code"
	StageDocumentation = "documentation"
	StageChallenge     = "challenge"
)

// Downloader fetches the document behind a download affordance.
type Downloader interface {
	HandleDownload(ctx context.Context, trigger, name string) (download.Result, error)
}

// Extractor recovers a code from document bytes.
type Extractor interface {
	ExtractCode(buf []byte) (docextract.Result, bool)
}

// ChallengeClient asks the challenge API for an item's code.
type ChallengeClient interface {
	FetchChallenge(ctx context.Context, title, unlockCode string) (cipher.Answer, error)
}

// Sequencer processes catalog items through the browser page.
type Sequencer struct {
	page       browser.Page
	downloads  Downloader
	extractor  Extractor
	challenges ChallengeClient

	sel      config.Selectors
	prefixes []string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSelectors replaces the catalog selectors.
func WithSelectors(sel config.Selectors) Option {
	return func(s *Sequencer) {
		s.sel = sel
	}
}

// WithTitlePrefixes sets the phrases stripped from documentation titles.
func WithTitlePrefixes(prefixes ...string) Option {
	return func(s *Sequencer) {
		s.prefixes = prefixes
	}
}

// WithItemTimeout bounds every wait for an element to appear.
func WithItemTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithConfig applies the selectors, title prefixes and item timeout of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Sequencer) {
		if cfg == nil {
			return
		}
		s.sel = cfg.Selectors
		s.prefixes = cfg.TitlePrefixes
		if cfg.ItemTimeout > 0 {
			s.timeout = cfg.ItemTimeout
		}
	}
}

// New creates a Sequencer.
func New(page browser.Page, downloads Downloader, extractor Extractor, challenges ChallengeClient, opts ...Option) *Sequencer {
	s := &Sequencer{
		page:       page,
		downloads:  downloads,
		extractor:  extractor,
		challenges: challenges,
		sel:        config.DefaultSelectors(),
		prefixes:   config.DefaultTitlePrefixes,
		timeout:    config.DefaultItemTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessPage processes items oldest first, threading the credential from
// one item to the next, and appends every obtained code to ledger.
// It stops early only when ctx is cancelled.
func (s *Sequencer) ProcessPage(ctx context.Context, items []model.CatalogItem, credential string, ledger *model.Ledger) (string, []model.ItemResult) {
	results := make([]model.ItemResult, 0, len(items))

	for _, item := range SortChronologically(items) {
		if ctx.Err() != nil {
			s.logger.Warn("page interrupted", "remaining", len(items)-len(results))
			break
		}

		var res model.ItemResult
		credential, res = s.ProcessItem(ctx, item, credential)
		for _, e := range res.Entries {
			ledger.Append(e)
		}
		results = append(results, res)
	}
	return credential, results
}

// ProcessItem processes one item with the current credential and returns
// the credential for the next item with the item's result. Failures are
// reported in the result, never returned.
func (s *Sequencer) ProcessItem(ctx context.Context, item model.CatalogItem, credential string) (string, model.ItemResult) {
	res := model.ItemResult{Item: item, Status: model.ItemResolved}
	logger := s.logger.With("title", item.Title, "century", item.CenturyLabel, "access", item.AccessState.String())
	logger.Info("processing item")

	var err error
	switch item.AccessState {
	case model.AccessUnlocked:
		credential, err = s.harvest(ctx, item, credential, &res)
	case model.AccessRequiresChallenge:
		credential, err = s.solveChallenge(ctx, item, credential, &res)
	default:
		credential, err = s.unlockAndHarvest(ctx, item, credential, &res)
	}

	if err != nil {
		res.Status = model.ItemFailed
		res.Err = err
		res.Error = err.Error()
		logger.Warn("item failed", "stage", res.Stage, "error", err)
		return credential, res
	}
	logger.Info("item resolved", "stage", res.Stage, "code", res.Code)
	return credential, res
}

// harvest downloads the item's document and looks for a code in it. A
// document without a code leaves the credential unchanged.
func (s *Sequencer) harvest(ctx context.Context, item model.CatalogItem, credential string, res *model.ItemResult) (string, error) {
	res.Stage = StageDownload
	dl, err := s.downloads.HandleDownload(ctx, config.Scoped(item.Ref, s.sel.Download), DocumentName(item.Title, item.SequenceIndex))
	if err != nil {
		return credential, fmt.Errorf("download %q: %w", item.Title, err)
	}

	res.Stage = StageExtract
	buf, err := os.ReadFile(dl.FilePath)
	if err != nil {
		return credential, fmt.Errorf("read document: %w", err)
	}

	found, ok := s.extractor.ExtractCode(buf)
	if !ok {
		res.Stage = StageNoCode
		s.logger.Info("no code in document", "title", item.Title, "file", dl.FilePath)
		return credential, nil
	}

	strategy := found.Strategy
	if strategy == "" {
		strategy = found.Stage
	}
	res.Code = found.Code
	res.Entries = append(res.Entries, model.LedgerEntry{
		Source:         model.SourcePDF,
		ItemTitle:      item.Title,
		CenturyLabel:   item.CenturyLabel,
		OutputCode:     found.Code,
		Strategy:       strategy,
		DocumentDigest: docextract.Digest(buf),
	})
	return found.Code, nil
}

// unlockAndHarvest opens a locked item with the credential and harvests it.
func (s *Sequencer) unlockAndHarvest(ctx context.Context, item model.CatalogItem, credential string, res *model.ItemResult) (string, error) {
	if credential == "" {
		res.Stage = StageCredential
		return credential, ErrNoCredential
	}

	res.Stage = StageUnlock
	if err := s.unlock(ctx, item, credential); err != nil {
		return credential, err
	}
	return s.harvest(ctx, item, credential, res)
}

// solveChallenge asks the API for the item's code, unlocks the item with
// it and harvests the document. A code found in the document replaces the
// API code as the next credential.
func (s *Sequencer) solveChallenge(ctx context.Context, item model.CatalogItem, credential string, res *model.ItemResult) (string, error) {
	if credential == "" {
		res.Stage = StageCredential
		return credential, ErrNoCredential
	}

	res.Stage = StageDocumentation
	title, err := s.documentationTitle(ctx, item)
	if err != nil {
		return credential, err
	}

	res.Stage = StageChallenge
	answer, err := s.challenges.FetchChallenge(ctx, title, credential)
	if err != nil {
		return credential, fmt.Errorf("challenge for %q: %w", title, err)
	}
	code := strings.TrimSpace(cipher.Resolve(answer))
	if code == "" {
		return credential, fmt.Errorf("challenge for %q: %w", title, ErrNoCode)
	}
	if !codematch.IsValidCode(code) {
		return credential, fmt.Errorf("challenge for %q: %w: %q", title, ErrInvalidCode, code)
	}

	res.Code = code
	res.Entries = append(res.Entries, model.LedgerEntry{
		Source:       model.SourceAPI,
		ItemTitle:    item.Title,
		CenturyLabel: item.CenturyLabel,
		InputCode:    credential,
		OutputCode:   code,
		Strategy:     cipher.Kind(answer),
	})

	res.Stage = StageUnlock
	if err := s.unlock(ctx, item, code); err != nil {
		return code, err
	}

	next, err := s.harvest(ctx, item, code, res)
	if err != nil {
		return code, err
	}
	if res.Stage == StageNoCode {
		res.Stage = StageChallenge
	}
	return next, nil
}

// documentationTitle opens the item's documentation view, reads its title
// and returns to the catalog page. The card title is used when the view
// shows none.
func (s *Sequencer) documentationTitle(ctx context.Context, item model.CatalogItem) (string, error) {
	back := s.page.CurrentURL()

	if err := s.page.Click(ctx, config.Scoped(item.Ref, s.sel.Documentation)); err != nil {
		return "", fmt.Errorf("open documentation: %w", err)
	}

	raw := item.Title
	if el, err := s.page.WaitForSelector(ctx, s.sel.DocumentationTitle, s.timeout); err == nil && el.Text() != "" {
		raw = el.Text()
	} else {
		s.logger.Warn("documentation title not found, using card title", "title", item.Title, "error", err)
	}

	if back != "" && back != s.page.CurrentURL() {
		if err := s.page.Navigate(ctx, back); err != nil {
			return "", fmt.Errorf("return to catalog: %w", err)
		}
	}

	title := StripTitlePrefix(raw, s.prefixes)
	s.logger.Debug("documentation title", "raw", raw, "title", title)
	return title, nil
}

// unlock types code into the item's code entry, submits it and waits for
// the download affordance, accepting a confirmation dialog on the way.
func (s *Sequencer) unlock(ctx context.Context, item model.CatalogItem, code string) error {
	if err := s.page.Fill(ctx, config.Scoped(item.Ref, s.sel.CodeInput), code); err != nil {
		return fmt.Errorf("enter code: %w", err)
	}
	if err := s.page.Click(ctx, config.Scoped(item.Ref, s.sel.UnlockButton)); err != nil {
		return fmt.Errorf("submit code: %w", err)
	}

	trigger := config.Scoped(item.Ref, s.sel.Download)
	which, _, err := browser.WaitForAny(ctx, s.page, s.timeout, s.sel.ConfirmDialog, trigger)
	if err != nil {
		return fmt.Errorf("wait for unlock: %w", err)
	}
	if which == 0 {
		if err := s.page.Click(ctx, s.sel.ConfirmButton); err != nil {
			return fmt.Errorf("confirm unlock: %w", err)
		}
		if _, err := s.page.WaitForSelector(ctx, trigger, s.timeout); err != nil {
			return fmt.Errorf("wait for unlock: %w", err)
		}
	}
	return nil
}
