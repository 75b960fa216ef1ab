package cipher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ChallengePath is the endpoint queried for challenge answers.
const ChallengePath = "/api/cipher/challenge"

// defaultTimeout bounds a single API request.
const defaultTimeout = 30 * time.Second

// Answer is the decoded challenge response. It is either DirectCode or
// VaultChallenge.
type Answer interface {
	answer()
}

// DirectCode is an answer that carries the code itself.
type DirectCode struct {
	Code string
}

func (DirectCode) answer() {}

// VaultChallenge is an answer that must be solved to obtain the code.
type VaultChallenge struct {
	Vault Vault
}

func (VaultChallenge) answer() {}

// Resolve returns the code carried by an answer. A nil answer yields "".
func Resolve(a Answer) string {
	switch v := a.(type) {
	case DirectCode:
		return v.Code
	case VaultChallenge:
		return v.Vault.Solve()
	default:
		return ""
	}
}

// Kind names the answer variant for logs and ledgers.
func Kind(a Answer) string {
	switch a.(type) {
	case DirectCode:
		return "direct"
	case VaultChallenge:
		return "vault"
	default:
		return "none"
	}
}

// Client queries the challenge API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRestyClient replaces the underlying HTTP client. The base URL is
// still applied by NewClient.
func WithRestyClient(rc *resty.Client) ClientOption {
	return func(c *Client) {
		if rc != nil {
			c.http = rc
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	c := &Client{
		http:   resty.New().SetTimeout(defaultTimeout),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetBaseURL(baseURL)
	c.http.SetHeader("Accept", "application/json")

	return c, nil
}

// wireAnswer mirrors the two JSON shapes the API produces.
type wireAnswer struct {
	Codigo    *string `json:"codigo"`
	Code      *string `json:"code"`
	Challenge *Vault  `json:"challenge"`
}

// FetchChallenge asks the API for the answer belonging to title, proving
// access with unlockCode.
func (c *Client) FetchChallenge(ctx context.Context, title, unlockCode string) (Answer, error) {
	c.logger.Debug("querying challenge API", "title", title)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"bookTitle":  title,
			"unlockCode": unlockCode,
		}).
		Get(ChallengePath)
	if err != nil {
		return nil, fmt.Errorf("challenge request for %q: %w", title, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode())
	}

	ans, err := decodeAnswer(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("challenge answer received", "title", title, "kind", Kind(ans))
	return ans, nil
}

// decodeAnswer turns a response body into an Answer.
// "codigo" takes precedence over "code", which takes precedence over a vault.
func decodeAnswer(body []byte) (Answer, error) {
	var w wireAnswer
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnswer, err)
	}

	switch {
	case w.Codigo != nil && *w.Codigo != "":
		return DirectCode{Code: *w.Codigo}, nil
	case w.Code != nil && *w.Code != "":
		return DirectCode{Code: *w.Code}, nil
	case w.Challenge != nil && len(w.Challenge.Characters) > 0:
		return VaultChallenge{Vault: *w.Challenge}, nil
	default:
		return nil, ErrMalformedAnswer
	}
}
