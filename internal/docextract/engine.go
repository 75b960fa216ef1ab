package docextract

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/scriptorium/internal/codematch"
)

// MinDocumentSize is the smallest buffer treated as a real document.
const MinDocumentSize = 100

// Stages of the cascade at which a code can be found.
const (
	StageStrategyText  = "strategy-text"
	StageRepairedText  = "repaired-text"
	StageContentStream = "content-stream"
	StageRawBuffer     = "raw-buffer"
)

// Result describes a successful extraction.
type Result struct {
	// Code is the recovered unlock code.
	Code string `json:"code"`

	// Strategy is the text strategy whose output was accepted, or empty if
	// no strategy produced usable text.
	Strategy string `json:"strategy,omitempty"`

	// Stage is the cascade stage that yielded Code.
	Stage string `json:"stage"`

	// Pattern is the matcher pattern that recognised Code.
	Pattern string `json:"pattern"`
}

// Engine runs the extraction cascade.
type Engine struct {
	strategies []Strategy
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Engine) {
		e.strategies = strategies
	}
}

// New creates an Engine using DefaultStrategies unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractCode searches buf for an unlock code. It reports false when the
// buffer is too small or no stage yields a valid code.
func (e *Engine) ExtractCode(buf []byte) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("document extraction panicked", "panic", fmt.Sprint(r))
			res, ok = Result{}, false
		}
	}()

	if len(buf) < MinDocumentSize {
		e.logger.Debug("buffer too small to be a document", "size", len(buf))
		return Result{}, false
	}

	text, strategy, haveText := FirstSuccess(buf, e.strategies, e.logger)
	if haveText {
		e.logger.Debug("strategy produced text", "strategy", strategy, "chars", len(text))

		if m, found := match(text); found {
			return Result{Code: m.Code, Strategy: strategy, Stage: StageStrategyText, Pattern: m.Pattern}, true
		}
		if repaired := repairEncoding(text); repaired != text {
			if m, found := match(repaired); found {
				return Result{Code: m.Code, Strategy: strategy, Stage: StageRepairedText, Pattern: m.Pattern}, true
			}
		}
	}

	if literals := showTextLiterals(buf); literals != "" {
		if m, found := match(repairEncoding(literals)); found {
			return Result{Code: m.Code, Strategy: strategy, Stage: StageContentStream, Pattern: m.Pattern}, true
		}
	}

	if m, found := match(strings.ToValidUTF8(string(buf), " ")); found {
		return Result{Code: m.Code, Strategy: strategy, Stage: StageRawBuffer, Pattern: m.Pattern}, true
	}

	e.logger.Debug("no code found in document", "strategy", strategy)
	return Result{}, false
}

// ExtractFile reads path and runs ExtractCode on its contents. Only read
// errors are returned.
func (e *Engine) ExtractFile(path string) (Result, bool, error) {
	buf, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return Result{}, false, fmt.Errorf("read document: %w", err)
	}
	res, ok := e.ExtractCode(buf)
	return res, ok, nil
}

// match runs the code matcher and applies the validity predicate.
func match(text string) (codematch.Match, bool) {
	m, ok := codematch.Search(text)
	if !ok || !codematch.IsValidCode(m.Code) {
		return codematch.Match{}, false
	}
	return m, true
}

// Digest returns the hex SHA3-256 digest of a document.
func Digest(buf []byte) string {
	sum := sha3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
