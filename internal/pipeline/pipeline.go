package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/perfumeharvest/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, with each step receiving the report
// filled in by the previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
type Step interface {
	// Do executes the pipeline step.
	// Per-URL problems belong in the report; an error means the step
	// itself could not complete.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// AlwaysStep is a Step that runs even after the context ended or an
// earlier step failed, so that a partial report is still persisted.
type AlwaysStep interface {
	Step

	// Always reports whether the step runs unconditionally.
	Always() bool
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and returns the first error.
//
// Once ctx has ended, or a step failed without continueOnError, only
// steps implementing AlwaysStep still run. The first error is also stored
// in report.Error.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	var firstErr error

	for _, step := range p.steps {
		always := isAlways(step)

		if err := ctx.Err(); err != nil {
			report.Canceled = true
			if firstErr == nil {
				firstErr = err
			}
			if !always {
				p.logger.Warn("pipeline canceled, skipping step",
					"step", step.Name(),
					"site", report.Site,
					"reason", err,
				)
				continue
			}
		}

		if firstErr != nil && !p.continueOnError && !always {
			continue
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"site", report.Site,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"site", report.Site,
				"error", err,
			)

			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"site", report.Site,
		)
	}

	if firstErr != nil && report.Error == "" {
		report.Error = firstErr.Error()
	}

	return firstErr
}

func isAlways(step Step) bool {
	a, ok := step.(AlwaysStep)
	return ok && a.Always()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
