package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/perfumeharvest/internal/config"
	"github.com/nao1215/perfumeharvest/internal/crawler"
	"github.com/nao1215/perfumeharvest/internal/model"
)

// HarvestStep walks the listing pages of one site and stores its products.
type HarvestStep struct {
	harvester *crawler.Harvester
	seeds     []string
}

// NewHarvestStep creates a step running harvester over seeds.
func NewHarvestStep(harvester *crawler.Harvester, seeds []string) *HarvestStep {
	return &HarvestStep{
		harvester: harvester,
		seeds:     seeds,
	}
}

// Name returns the step name.
func (s *HarvestStep) Name() string {
	return "harvest"
}

// Do executes the harvest. Failures of single URLs are recorded in the
// report; only cancellation is returned as an error.
func (s *HarvestStep) Do(ctx context.Context, report *model.RunReport) error {
	return s.harvester.Harvest(ctx, report, s.seeds)
}

// RunRecorder persists run reports. *database.PerfumeDB satisfies it.
type RunRecorder interface {
	SaveRunReport(ctx context.Context, report *model.RunReport) error
}

// RecordRunStep saves the report of a run, partial ones included.
type RecordRunStep struct {
	recorder RunRecorder
	logger   *slog.Logger
}

// NewRecordRunStep creates a step saving reports through recorder.
func NewRecordRunStep(recorder RunRecorder, logger *slog.Logger) *RecordRunStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordRunStep{
		recorder: recorder,
		logger:   logger,
	}
}

// Name returns the step name.
func (s *RecordRunStep) Name() string {
	return "record_run"
}

// Always makes the step run after cancellation too.
func (s *RecordRunStep) Always() bool {
	return true
}

// Do saves the report. The context's cancellation is ignored so that an
// interrupted run is still recorded.
func (s *RecordRunStep) Do(ctx context.Context, report *model.RunReport) error {
	if err := s.recorder.SaveRunReport(context.WithoutCancel(ctx), report); err != nil {
		return fmt.Errorf("failed to record run %s: %w", report.RunID, err)
	}

	s.logger.Debug("run report saved",
		"site", report.Site,
		"run_id", report.RunID,
	)
	return nil
}

// Dependencies are shared by the pipelines of all sites in a batch.
type Dependencies struct {
	// Fetcher retrieves pages. Required.
	Fetcher crawler.Fetcher

	// Gate enforces robots.txt and host spacing. One gate is shared by all
	// sites so that spacing holds across them. Required.
	Gate crawler.Gate

	// Store receives harvested perfumes. Required.
	Store crawler.Store

	// Recorder saves run reports. Optional.
	Recorder RunRecorder

	// Logger is used by every step. Optional.
	Logger *slog.Logger
}

// ErrMissingDependency is returned by NewSitePipeline for incomplete
// dependencies.
var ErrMissingDependency = errors.New("missing pipeline dependency")

// NewSitePipeline creates the pipeline for one site: a harvest followed by
// recording the run when a recorder is set.
func NewSitePipeline(deps Dependencies, site config.Site, opts ...Option) (*Pipeline, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, fmt.Errorf("%w: fetcher", ErrMissingDependency)
	case deps.Gate == nil:
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("site", site.Name)

	harvester := crawler.NewHarvester(deps.Fetcher, deps.Gate, deps.Store,
		crawler.WithSite(site.Name),
		crawler.WithBaseURL(site.BaseURL),
		crawler.WithMaxListingPages(site.MaxListingPages),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithHeaders(site.Headers),
		crawler.WithLogger(logger),
	)

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddStep(NewHarvestStep(harvester, site.Seeds))
	if deps.Recorder != nil {
		p.AddStep(NewRecordRunStep(deps.Recorder, logger))
	}

	return p, nil
}
