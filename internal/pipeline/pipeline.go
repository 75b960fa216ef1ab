package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/scriptorium/internal/model"
)

// Step is one stage of a catalog run. A step records what it achieved in
// the run report; a returned error ends the run.
type Step interface {
	Name() string
	Do(ctx context.Context, report *model.RunReport) error
}

// Pipeline runs its steps in order against a single run report.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run progress. DefaultPipeline hands
// the same logger to its steps.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New returns a pipeline executing steps in the given order.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  append([]Step(nil), steps...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.steps))
	for _, s := range p.steps {
		names = append(names, s.Name())
	}
	return names
}

// Execute runs the steps until one fails or the context is cancelled.
//
// The name of every step that finished is appended to
// report.PerformedSteps. A failing step stops the run and its error is
// recorded in the report. Cancellation, whether noticed between steps or
// surfaced by a running step, marks the report as interrupted.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	p.logger.Info("run started", "site", report.Site, "steps", p.Steps())

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			p.logger.Warn("run interrupted",
				"site", report.Site,
				"skipped", p.Steps()[i:],
				"reason", err,
			)
			return err
		}

		started := time.Now()
		if err := step.Do(ctx, report); err != nil {
			if ctx.Err() != nil {
				report.Interrupted = true
			}
			report.Error = err
			report.ErrorMessage = err.Error()
			p.logger.Error("step failed", "step", step.Name(), "site", report.Site, "error", err)
			return err
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
		p.logger.Info("step finished",
			"step", step.Name(),
			"elapsed", time.Since(started).Round(time.Millisecond),
			"codes", report.TotalCodes(),
			"failed", report.FailureCount(),
		)
	}

	return nil
}
