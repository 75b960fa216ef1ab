package browser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	defaultUserAgent      = "scriptorium/1.0 (+https://github.com/nao1215/scriptorium)"
)

// Session is a Page backed by HTTP requests and an in-memory DOM.
// It is safe for concurrent use; WaitForAny polls from several goroutines.
type Session struct {
	http         *resty.Client
	base         *url.URL
	logger       *slog.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	current *url.URL
	doc     *goquery.Document
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPollInterval sets how often WaitForSelector re-fetches the page.
func WithPollInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithRequestTimeout bounds every HTTP request.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.http.SetTimeout(d)
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) SessionOption {
	return func(s *Session) {
		if ua != "" {
			s.http.SetHeader("User-Agent", ua)
		}
	}
}

// NewSession creates a session rooted at baseURL. No request is made until
// Navigate is called.
func NewSession(baseURL string, opts ...SessionOption) (*Session, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(defaultRequestTimeout)
	client.SetHeader("User-Agent", defaultUserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	s := &Session{
		http:         client,
		base:         base,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		s.logger.Debug("http request", "method", req.Method, "url", redactQuery(req.URL))
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		s.logger.Debug("http response",
			"method", resp.Request.Method,
			"url", redactQuery(resp.Request.URL),
			"status", resp.StatusCode(),
			"elapsed", resp.Time(),
		)
		return nil
	})

	return s, nil
}

// Navigate loads target, resolved against the current page or the base URL.
func (s *Session) Navigate(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.resolve(target)
	if err != nil {
		return err
	}
	return s.load(ctx, u)
}

// Click follows a link or submits the form that owns a submit control.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := s.find(selector)
	if err != nil {
		return err
	}

	if isSubmitControl(sel) {
		form := sel.Closest("form")
		if form.Length() > 0 {
			return s.submit(ctx, form, sel)
		}
	}

	href, ok := linkTarget(sel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotClickable, selector)
	}
	u, err := s.resolve(href)
	if err != nil {
		return err
	}
	return s.load(ctx, u)
}

// Fill sets the value of an input or textarea in the current document.
func (s *Session) Fill(_ context.Context, selector, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := s.find(selector)
	if err != nil {
		return err
	}
	if goquery.NodeName(sel) == "textarea" {
		sel.SetText(value)
		return nil
	}
	sel.SetAttr("value", value)
	return nil
}

// WaitForSelector returns the first element matching selector, re-fetching
// the current page every poll interval until it appears or timeout elapses.
func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if el, ok := s.lookup(selector); ok {
			return el, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, selector, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		if err := s.reload(ctx); err != nil {
			s.logger.Debug("reload while waiting failed", "selector", selector, "error", err)
		}
	}
}

// Text returns the collapsed text of the first element matching selector.
func (s *Session) Text(_ context.Context, selector string) (string, bool) {
	el, ok := s.lookup(selector)
	if !ok {
		return "", false
	}
	return el.Text(), true
}

// QueryAll returns every element matching selector.
func (s *Session) QueryAll(_ context.Context, selector string) ([]Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, ErrNoDocument
	}
	var out []Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, newDOMElement(sel))
	})
	return out, nil
}

// Download fetches the file a link points at without replacing the page.
func (s *Session) Download(ctx context.Context, selector string) (*Download, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, err := s.find(selector)
	if err != nil {
		return nil, err
	}
	href, ok := linkTarget(sel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDownloadable, selector)
	}
	u, err := s.resolve(href)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", redactQuery(u.String()), err)
	}
	if !resp.IsSuccess() {
		_ = resp.RawBody().Close()
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), redactQuery(u.String()))
	}

	return &Download{
		Name: downloadName(resp.Header().Get("Content-Disposition"), u),
		Size: resp.RawResponse.ContentLength,
		Body: resp.RawBody(),
	}, nil
}

// CurrentURL returns the URL of the loaded page, or "" before Navigate.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ""
	}
	return s.current.String()
}

func (s *Session) lookup(selector string) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, false
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}
	return newDOMElement(sel), true
}

func (s *Session) reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoDocument
	}
	return s.load(ctx, s.current)
}

// find returns the first match of selector. Callers hold mu.
func (s *Session) find(selector string) (*goquery.Selection, error) {
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return sel, nil
}

// resolve makes target absolute. Callers hold mu.
func (s *Session) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, fmt.Errorf("parse URL %q: %w", target, err)
	}
	from := s.base
	if s.current != nil {
		from = s.current
	}
	return from.ResolveReference(ref), nil
}

// load fetches u and makes it the current page. Callers hold mu.
func (s *Session) load(ctx context.Context, u *url.URL) error {
	resp, err := s.http.R().
		SetContext(ctx).
		Get(u.String())
	if err != nil {
		return fmt.Errorf("get %s: %w", redactQuery(u.String()), err)
	}
	return s.adopt(resp)
}

// submit posts form the way a browser would when trigger is clicked.
// Callers hold mu.
func (s *Session) submit(ctx context.Context, form, trigger *goquery.Selection) error {
	values := formValues(form, trigger)

	action, _ := form.Attr("action")
	if v, ok := trigger.Attr("formaction"); ok {
		action = v
	}
	u, err := s.resolve(action)
	if err != nil {
		return err
	}

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "GET")))
	var resp *resty.Response
	if method == "POST" {
		resp, err = s.http.R().
			SetContext(ctx).
			SetFormDataFromValues(values).
			Post(u.String())
	} else {
		q := *u
		q.RawQuery = values.Encode()
		resp, err = s.http.R().
			SetContext(ctx).
			Get(q.String())
	}
	if err != nil {
		return fmt.Errorf("submit form to %s: %w", redactQuery(u.String()), err)
	}
	return s.adopt(resp)
}

// adopt parses a page response and makes it current. Callers hold mu.
func (s *Session) adopt(resp *resty.Response) error {
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode(), redactQuery(resp.Request.URL))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	final := resp.Request.URL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		final = resp.RawResponse.Request.URL.String()
	}
	u, err := url.Parse(final)
	if err != nil {
		return fmt.Errorf("parse page URL: %w", err)
	}

	s.current = u
	s.doc = doc
	return nil
}

// isSubmitControl reports whether clicking sel submits its form.
func isSubmitControl(sel *goquery.Selection) bool {
	typ := strings.ToLower(sel.AttrOr("type", ""))
	switch goquery.NodeName(sel) {
	case "button":
		return typ == "" || typ == "submit"
	case "input":
		return typ == "submit" || typ == "image"
	default:
		return false
	}
}

// linkTarget returns the href of sel or its closest link ancestor.
// Scripted and fragment-only links are not followed.
func linkTarget(sel *goquery.Selection) (string, bool) {
	href, ok := sel.Attr("href")
	if !ok {
		href, ok = sel.Attr("data-href")
	}
	if !ok {
		href, ok = sel.Closest("a[href]").Attr("href")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	return href, true
}

// formValues collects the successful controls of form.
func formValues(form, trigger *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", collapseSpace(opt.Text())))
			}
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "image", "button", "reset", "file":
				return
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); !checked {
					return
				}
				values.Add(name, field.AttrOr("value", "on"))
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	if name, ok := trigger.Attr("name"); ok && name != "" {
		values.Add(name, trigger.AttrOr("value", ""))
	}
	return values
}

// downloadName picks a file name from Content-Disposition, falling back to
// the last path segment.
func downloadName(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := path.Base(params["filename"]); name != "" && name != "." && name != "/" {
				return name
			}
		}
	}
	if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
		return name
	}
	return "download"
}

// redactQuery drops the query string so codes never reach the logs.
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i] + "?…"
	}
	return raw
}
