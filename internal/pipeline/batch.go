package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/perfumeharvest/internal/config"
	"github.com/nao1215/perfumeharvest/internal/model"
)

// DefaultConcurrency is the number of sites processed at the same time
// unless WithConcurrency says otherwise.
const DefaultConcurrency = config.DefaultConcurrency

// Factory builds the pipeline for one site.
type Factory func(site config.Site) (*Pipeline, error)

// BatchProcessor handles concurrent processing of multiple sites.
// It uses errgroup to manage goroutines and respect the concurrency limit.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single site
// 2. Per-site pipelines can be built with per-site settings
type BatchProcessor struct {
	// factory creates a fresh pipeline for each site.
	factory Factory

	// concurrency is the maximum number of concurrent sites.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	now func() time.Time
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sites.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchClock replaces the time source of report start times.
func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *BatchProcessor) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch harvests multiple sites concurrently.
//
// Reports are returned in the order of sites, one per site, including sites
// whose pipeline failed; their Error field says why. A site not started
// before ctx ended gets a canceled report. The error is the context error
// when the batch was interrupted, nil otherwise.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []config.Site) ([]*model.RunReport, error) {
	results := make([]*model.RunReport, len(sites))

	err := bp.ProcessBatchWithCallback(ctx, sites, func(report *model.RunReport, index int) {
		results[index] = report
	})

	return results, err
}

// ProcessBatchWithCallback harvests multiple sites and calls callback for
// each finished site. This is useful for streaming results.
//
// The callback receives the report and the index of the site in sites. It
// is called from the goroutine that finished the site, so it must be safe
// for concurrent use if it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []config.Site,
	callback func(report *model.RunReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_sites", len(sites),
		"concurrency", bp.concurrency,
	)

	startTime := bp.now()

	// Site failures are kept in reports, so goroutines never return errors
	// and the group context is not needed.
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			report := model.NewRunReport(site.Name, site.BaseURL, bp.now().UTC())

			if err := ctx.Err(); err != nil {
				report.Canceled = true
				report.FinishedAt = report.StartedAt
				report.Error = err.Error()
				callback(report, i)
				return nil
			}

			bp.logger.Info("harvesting site",
				"site", site.Name,
				"index", i+1,
				"total", len(sites),
			)

			p, err := bp.factory(site)
			if err != nil {
				report.FinishedAt = bp.now().UTC()
				report.Error = err.Error()
				bp.logger.Error("failed to build pipeline", "site", site.Name, "error", err)
				callback(report, i)
				return nil
			}

			if err := p.Execute(ctx, report); err != nil {
				bp.logger.Warn("site finished with error",
					"site", site.Name,
					"error", err,
				)
			} else {
				bp.logger.Info("site completed",
					"site", site.Name,
					"scraped", report.ScrapedCount,
				)
			}

			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never fail

	bp.logger.Info("batch processing complete",
		"total_sites", len(sites),
		"elapsed", bp.now().Sub(startTime),
	)

	return ctx.Err()
}
