package sequencer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/scriptorium/internal/browser"
	"github.com/nao1215/scriptorium/internal/cipher"
	"github.com/nao1215/scriptorium/internal/config"
	"github.com/nao1215/scriptorium/internal/docextract"
	"github.com/nao1215/scriptorium/internal/download"
	"github.com/nao1215/scriptorium/internal/model"
)

const catalogURL = "https://catalog.example/catalog"

// fakeCard is one manuscript card of fakePage.
type fakeCard struct {
	id       string
	title    string
	century  string
	state    model.AccessState
	code     string // code accepted by the unlock form
	confirm  bool   // unlocking shows a confirmation dialog
	docTitle string
	document string
	unlocked bool
}

func (c *fakeCard) path() string { return "#" + c.id }

func (c *fakeCard) has(sel config.Selectors, rel string) bool {
	open := c.state == model.AccessUnlocked || c.unlocked
	switch rel {
	case sel.Download:
		return open
	case sel.CodeInput, sel.UnlockButton:
		return !open
	case sel.Documentation:
		return c.state == model.AccessRequiresChallenge
	default:
		return false
	}
}

// fakePage is an in-memory catalog implementing browser.Page.
type fakePage struct {
	sel config.Selectors

	mu     sync.Mutex
	cards  []*fakeCard
	url    string
	fills  map[string]string
	clicks []string
	visits []string
	dialog *fakeCard
	docs   *fakeCard
}

func newFakePage(cards ...*fakeCard) *fakePage {
	return &fakePage{
		sel:   config.DefaultSelectors(),
		cards: cards,
		url:   catalogURL,
		fills: make(map[string]string),
	}
}

func (p *fakePage) Navigate(_ context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = target
	p.docs = nil
	p.visits = append(p.visits, target)
	return nil
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)

	if selector == p.sel.ConfirmButton && p.dialog != nil {
		p.dialog.unlocked = true
		p.dialog = nil
		return nil
	}

	for _, c := range p.cards {
		switch selector {
		case config.Scoped(c.path(), p.sel.UnlockButton):
			if !c.has(p.sel, p.sel.UnlockButton) {
				return browser.ErrElementNotFound
			}
			if p.fills[config.Scoped(c.path(), p.sel.CodeInput)] == c.code {
				if c.confirm {
					p.dialog = c
				} else {
					c.unlocked = true
				}
			}
			return nil
		case config.Scoped(c.path(), p.sel.Documentation):
			if !c.has(p.sel, p.sel.Documentation) {
				return browser.ErrElementNotFound
			}
			p.docs = c
			p.url = "https://catalog.example/docs/" + c.id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

func (p *fakePage) Fill(_ context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.cards {
		if selector == config.Scoped(c.path(), p.sel.CodeInput) && c.has(p.sel, p.sel.CodeInput) {
			p.fills[selector] = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
}

// present reports whether selector matches something. Callers hold mu.
func (p *fakePage) present(selector string) (*fakeElement, bool) {
	switch selector {
	case p.sel.ConfirmDialog:
		return &fakeElement{path: selector}, p.dialog != nil
	case p.sel.DocumentationTitle:
		if p.docs == nil || p.docs.docTitle == "" {
			return nil, false
		}
		return &fakeElement{path: selector, text: p.docs.docTitle}, true
	}
	for _, c := range p.cards {
		for _, rel := range []string{p.sel.Download, p.sel.CodeInput, p.sel.UnlockButton, p.sel.Documentation} {
			if selector == config.Scoped(c.path(), rel) && c.has(p.sel, rel) {
				return &fakeElement{path: selector}, true
			}
		}
	}
	return nil, false
}

func (p *fakePage) WaitForSelector(ctx context.Context, selector string, _ time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.present(selector); ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrTimeout, selector)
}

func (p *fakePage) Text(_ context.Context, selector string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.present(selector); ok {
		return el.text, true
	}
	return "", false
}

func (p *fakePage) QueryAll(_ context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if selector != p.sel.Card {
		return nil, nil
	}

	out := make([]browser.Element, 0, len(p.cards))
	for _, c := range p.cards {
		el := &fakeElement{
			path:  c.path(),
			text:  c.title + " " + c.century,
			has:   make(map[string]bool),
			texts: map[string]string{p.sel.Title: c.title, p.sel.Century: c.century},
		}
		for _, rel := range []string{p.sel.Download, p.sel.CodeInput, p.sel.UnlockButton, p.sel.Documentation} {
			el.has[rel] = c.has(p.sel, rel)
		}
		out = append(out, el)
	}
	return out, nil
}

func (p *fakePage) Download(_ context.Context, selector string) (*browser.Download, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.cards {
		if selector == config.Scoped(c.path(), p.sel.Download) && c.has(p.sel, p.sel.Download) {
			return &browser.Download{
				Name: c.id + ".pdf",
				Size: int64(len(c.document)),
				Body: io.NopCloser(strings.NewReader(c.document)),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", browser.ErrNotDownloadable, selector)
}

func (p *fakePage) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) filled(c *fakeCard) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fills[config.Scoped(c.path(), p.sel.CodeInput)]
}

type fakeElement struct {
	path  string
	text  string
	has   map[string]bool
	texts map[string]string
}

func (e *fakeElement) Path() string                   { return e.path }
func (e *fakeElement) Text() string                   { return e.text }
func (e *fakeElement) Attr(string) (string, bool)     { return "", false }
func (e *fakeElement) Has(selector string) bool       { return e.has[selector] }
func (e *fakeElement) FindText(s string) (string, bool) {
	v, ok := e.texts[s]
	return v, ok
}

// fakeChallenges answers challenge queries and records them.
type fakeChallenges struct {
	answer cipher.Answer
	err    error

	mu    sync.Mutex
	calls [][2]string
}

func (f *fakeChallenges) FetchChallenge(_ context.Context, title, unlockCode string) (cipher.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [2]string{title, unlockCode})
	return f.answer, f.err
}

// document returns a buffer large enough to be treated as a document.
func document(text string) string {
	return "%PDF-1.4\n" + strings.Repeat("Folio en blanco. ", 8) + text + "\n"
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSequencer wires page to a real download manager and extraction engine.
func newTestSequencer(t *testing.T, page *fakePage, challenges ChallengeClient) *Sequencer {
	t.Helper()

	logger := discardLogger()
	downloads := download.NewManager(page, t.TempDir(),
		download.WithAttempts(1),
		download.WithRetryDelay(0),
		download.WithStability(time.Millisecond, 1, time.Second),
		download.WithLogger(logger),
	)
	return New(page, downloads, docextract.New(docextract.WithLogger(logger)), challenges,
		WithLogger(logger),
		WithItemTimeout(50*time.Millisecond),
	)
}
