package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/perfumeharvest/internal/config"
	"github.com/nao1215/perfumeharvest/internal/database"
	"github.com/nao1215/perfumeharvest/internal/fetch"
	"github.com/nao1215/perfumeharvest/internal/guard"
	"github.com/nao1215/perfumeharvest/internal/model"
	"github.com/nao1215/perfumeharvest/internal/pipeline"
	"github.com/nao1215/perfumeharvest/internal/report"
)

// NewHarvestCmd creates the harvest command.
func NewHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [site-or-url...]",
		Short: "Harvest perfume products from shops",
		Long: `Harvest walks the listing pages of perfume shops and stores every product
it finds in the perfume database.

Arguments are site names from the configuration file or absolute listing
URLs. Without arguments every configured site is harvested.

Examples:
  # Harvest every site in .perfumeharvest
  perfumeharvest harvest

  # Harvest one configured site
  perfumeharvest harvest vicioso

  # Harvest an unconfigured shop from a listing URL
  perfumeharvest harvest https://shop.example/collections/all

  # Write a Markdown report to a file
  perfumeharvest harvest --markdown -o reports/today.md

Configuration file (.perfumeharvest) example:
  sites:
    vicioso:
      baseURL: "https://shop.example"
      seeds:
        - "/collections/damen-parfum"
      headers:
        Cookie: "consent=all"`,
		Args: cobra.ArbitraryArgs,
		RunE: runHarvestCmd,
	}

	// Fetch behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("attempts", config.DefaultMaxAttempts,
		"Tries per URL for transport errors and 5xx responses")
	cmd.Flags().Duration("backoff", config.DefaultBackoff,
		"Wait before the first retry")
	cmd.Flags().Float64("backoff-multiplier", config.DefaultBackoffMultiplier,
		"Growth of the wait before each further retry")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes (0 = unlimited)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent sent with every request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy (host:port) for every request, robots.txt included")

	// Politeness flags
	cmd.Flags().Duration("min-interval", config.DefaultMinInterval,
		"Minimum spacing of two requests to the same host")
	cmd.Flags().Bool("honor-crawl-delay", false,
		"Let a robots.txt Crawl-delay widen --min-interval")
	cmd.Flags().Float64("global-rate", config.DefaultGlobalRate,
		"Requests per second across all hosts (0 = unlimited)")

	// Crawl scope flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxListingPages,
		"Maximum listing pages per site")
	cmd.Flags().IntP("concurrency", "b", config.DefaultConcurrency,
		"Number of sites harvested at the same time")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .perfumeharvest in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runHarvestCmd executes the harvest command.
func runHarvestCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, closeLog := setupLogger(cmd)
	defer closeLog()

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runHarvest(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = flags.GetInt("attempts"); err != nil {
		return nil, err
	}
	if cfg.Backoff, err = flags.GetDuration("backoff"); err != nil {
		return nil, err
	}
	if cfg.BackoffMultiplier, err = flags.GetFloat64("backoff-multiplier"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.MinInterval, err = flags.GetDuration("min-interval"); err != nil {
		return nil, err
	}
	if cfg.HonorCrawlDelay, err = flags.GetBool("honor-crawl-delay"); err != nil {
		return nil, err
	}
	if cfg.GlobalRate, err = flags.GetFloat64("global-rate"); err != nil {
		return nil, err
	}
	if cfg.MaxListingPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.DBDir = getStringFlag(cmd, "db-dir", cfg.DBDir)

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = args

	return cfg, nil
}

// newGate builds the robots.txt and spacing guard shared by all sites.
func newGate(cfg *config.Config, client *fetch.Client, logger *slog.Logger) *guard.Guard {
	robots := guard.NewRobotsPolicy(client, client.UserAgent(), guard.WithRobotsLogger(logger))
	limiter := guard.NewDomainLimiter(cfg.MinInterval)

	return guard.New(robots, limiter,
		guard.WithGlobalRate(cfg.GlobalRate, 1),
		guard.WithCrawlDelay(cfg.HonorCrawlDelay),
	)
}

// runHarvest harvests the sites of cfg and writes the reports.
// Progress goes to progress so that a report on out stays parseable.
func runHarvest(ctx context.Context, out, progress io.Writer, cfg *config.Config, logger *slog.Logger) error {
	sites, err := cfg.Sites()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "path", db.Path())

	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxAttempts(cfg.MaxAttempts),
		fetch.WithBackoff(cfg.Backoff),
		fetch.WithBackoffMultiplier(cfg.BackoffMultiplier),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if cfg.Proxy != "" {
		// Must follow WithTimeout, which installs its own http.Client.
		hc, err := fetch.NewProxyHTTPClient(cfg.Proxy, cfg.Timeout)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		opts = append(opts, fetch.WithHTTPClient(hc))
		logger.Info("routing requests through proxy", "proxy", cfg.Proxy)
	}
	client := fetch.New(opts...)

	deps := pipeline.Dependencies{
		Fetcher:  client,
		Gate:     newGate(cfg, client, logger),
		Store:    db,
		Recorder: db,
		Logger:   logger,
	}

	bp := pipeline.NewBatchProcessor(
		func(site config.Site) (*pipeline.Pipeline, error) {
			return pipeline.NewSitePipeline(deps, site)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(progress, "Harvesting %d site(s) (concurrency: %d)...\n\n", len(sites), cfg.Concurrency)
	startTime := time.Now()

	reports := make([]*model.RunReport, len(sites))
	var mu sync.Mutex
	batchErr := bp.ProcessBatchWithCallback(ctx, sites, func(r *model.RunReport, index int) {
		mu.Lock()
		defer mu.Unlock()

		reports[index] = r
		fmt.Fprintf(progress, "[%d/%d] %s: %d of %d products harvested\n",
			index+1, len(sites), r.Site, r.ScrapedCount, len(r.DiscoveredProductURLs))
	})

	fmt.Fprintf(progress, "\nHarvest completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err := outputReports(cfg, out, reports); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if batchErr != nil {
		return fmt.Errorf("harvest interrupted: %w", batchErr)
	}
	if failed := failedSites(reports); len(failed) > 0 {
		return fmt.Errorf("%w: %v", errSitesFailed, failed)
	}
	return nil
}

// errSitesFailed is returned when a site pipeline ended with an error.
var errSitesFailed = errors.New("harvest failed for some sites")

func failedSites(reports []*model.RunReport) []string {
	var failed []string
	for _, r := range reports {
		if r != nil && r.Error != "" && !r.Canceled {
			failed = append(failed, r.Site)
		}
	}
	return failed
}

// newReportWriter returns the writer selected by the report flags.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// outputReports writes the reports in the requested format, to
// cfg.ReportFile or to out. A single site gets a single-site report.
func outputReports(cfg *config.Config, out io.Writer, reports []*model.RunReport) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Owner-only, like the database.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := newReportWriter(cfg, out)
	if len(reports) == 1 && reports[0] != nil {
		_, err := w.Write(reports[0])
		return err
	}
	_, err := w.WriteBatch(reports)
	return err
}
