package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Element is a handle on one node of the current page.
type Element interface {
	// Path is a selector that matches this element again after the page
	// is reloaded, as long as its structure is unchanged.
	Path() string

	// Text returns the element's text with whitespace collapsed.
	Text() string

	// Attr returns an attribute value.
	Attr(name string) (string, bool)

	// Has reports whether a descendant matches selector.
	Has(selector string) bool

	// FindText returns the text of the first descendant matching selector.
	FindText(selector string) (string, bool)
}

// Download is a file fetched through Page.Download. The caller closes Body.
type Download struct {
	// Name is the server-suggested file name.
	Name string

	// Size is the announced length, or -1 when unknown.
	Size int64

	Body io.ReadCloser
}

// Page is the browser capability used by login, catalog scanning and item
// processing.
type Page interface {
	Navigate(ctx context.Context, target string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	Text(ctx context.Context, selector string) (string, bool)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Download(ctx context.Context, selector string) (*Download, error)
	CurrentURL() string
}

// WaitForAny waits for the first of selectors to appear on p and returns
// its index and element. Every waiter shares timeout; the others are
// cancelled as soon as one succeeds.
func WaitForAny(ctx context.Context, p Page, timeout time.Duration, selectors ...string) (int, Element, error) {
	if len(selectors) == 0 {
		return -1, nil, ErrNoSelectors
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		mu     sync.Mutex
		winner = -1
		found  Element
		errs   []error
	)
	for i, sel := range selectors {
		g.Go(func() error {
			el, err := p.WaitForSelector(gctx, sel, timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if winner < 0 {
				winner, found = i, el
			}
			return errRaceWon
		})
	}
	_ = g.Wait() //nolint:errcheck // only errRaceWon is ever returned

	if winner >= 0 {
		return winner, found, nil
	}
	if err := ctx.Err(); err != nil {
		return -1, nil, err
	}
	if len(errs) == 0 {
		return -1, nil, fmt.Errorf("wait for any of %q: %w", selectors, ErrTimeout)
	}
	return -1, nil, fmt.Errorf("wait for any of %q: %w", selectors, errors.Join(errs...))
}

// errRaceWon cancels the remaining waiters once one has succeeded.
var errRaceWon = errors.New("selector found")
