package browser

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"
)

// delayedPage reports each selector after a fixed delay; selectors without
// a delay never appear.
type delayedPage struct {
	Page
	delays map[string]time.Duration
}

type stubElement struct {
	Element
	path string
}

func (e stubElement) Path() string { return e.path }

func (p *delayedPage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	d, ok := p.delays[selector]
	if !ok || d > timeout {
		d = timeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	if !ok || p.delays[selector] > timeout {
		return nil, ErrTimeout
	}
	return stubElement{path: selector}, nil
}

func TestWaitForAny(t *testing.T) {
	t.Parallel()

	t.Run("first to appear wins", func(t *testing.T) {
		t.Parallel()
		p := &delayedPage{delays: map[string]time.Duration{
			".dialog":   200 * time.Millisecond,
			".download": 5 * time.Millisecond,
		}}

		start := time.Now()
		idx, el, err := WaitForAny(context.Background(), p, 2*time.Second, ".dialog", ".download")
		if err != nil {
			t.Fatalf("WaitForAny() error: %v", err)
		}
		if idx != 1 || el.Path() != ".download" {
			t.Errorf("expected .download to win, got %d %q", idx, el.Path())
		}
		if time.Since(start) > time.Second {
			t.Error("losing waiter was not cancelled")
		}
	})

	t.Run("all time out", func(t *testing.T) {
		t.Parallel()
		p := &delayedPage{delays: map[string]time.Duration{}}
		_, _, err := WaitForAny(context.Background(), p, 20*time.Millisecond, ".a", ".b")
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("parent cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := &delayedPage{delays: map[string]time.Duration{".a": time.Second}}
		_, _, err := WaitForAny(ctx, p, 2*time.Second, ".a")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("no selectors", func(t *testing.T) {
		t.Parallel()
		if _, _, err := WaitForAny(context.Background(), &delayedPage{}, time.Second); !errors.Is(err, ErrNoSelectors) {
			t.Errorf("expected ErrNoSelectors, got %v", err)
		}
	})
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}
