package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/perfumeharvest/internal/crawler"
	"github.com/nao1215/perfumeharvest/internal/fetch"
	"github.com/nao1215/perfumeharvest/internal/guard"
)

// Default configuration values.
const (
	// DefaultTimeout bounds one HTTP request, body included.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxAttempts is the number of tries per URL for transient
	// failures: the first attempt plus three retries.
	DefaultMaxAttempts = fetch.DefaultMaxAttempts

	// DefaultBackoff is the wait before the second attempt.
	DefaultBackoff = 1 * time.Second

	// DefaultBackoffMultiplier grows the wait between later attempts.
	DefaultBackoffMultiplier = 2.0

	// DefaultMinInterval is the minimum spacing of two requests to one host.
	DefaultMinInterval = guard.DefaultMinInterval

	// DefaultMaxListingPages caps the listing walk of one site.
	DefaultMaxListingPages = crawler.DefaultMaxListingPages

	// DefaultConcurrency is the number of sites harvested at the same time.
	// Requests to one host are still spaced by MinInterval.
	DefaultConcurrency = 4

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MiB

	// DefaultGlobalRate of zero leaves total throughput uncapped.
	DefaultGlobalRate = 0.0

	// DefaultUserAgent identifies the harvester in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// AppName is the application name used for XDG directory paths.
	AppName = "perfumeharvest"
)

// Config holds all configuration options for a harvest.
// It is populated from CLI flags and the config file and passed through the
// application rather than kept in global state.
//
// Design decision: We use a single flat struct. Per-site settings live in
// SiteConfigs; everything else applies to the whole run.
type Config struct {
	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// MaxAttempts is the number of tries per URL. 1 disables retries.
	MaxAttempts int

	// Backoff is the wait before the first retry.
	Backoff time.Duration

	// BackoffMultiplier grows the wait before each further retry.
	BackoffMultiplier float64

	// MinInterval is the minimum spacing of two requests to the same host.
	MinInterval time.Duration

	// HonorCrawlDelay lets a robots.txt Crawl-delay widen MinInterval.
	HonorCrawlDelay bool

	// GlobalRate caps requests per second across all hosts. Zero disables it.
	GlobalRate float64

	// MaxListingPages caps listing pages per site unless the site overrides it.
	MaxListingPages int

	// Concurrency is the number of sites harvested at the same time.
	Concurrency int

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request,
	// robots.txt included.
	UserAgent string

	// Proxy is an optional SOCKS5 proxy ("host:port") for every request.
	Proxy string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .perfumeharvest is searched in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the sites loaded from the config file.
	SiteConfigs *File

	// Targets are configured site names or absolute listing URLs.
	// When empty, every configured site is harvested.
	Targets []string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the reports.
	// When empty, reports are written to stdout.
	ReportFile string

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/perfumeharvest on Linux).
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxAttempts:       DefaultMaxAttempts,
		Backoff:           DefaultBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		MinInterval:       DefaultMinInterval,
		GlobalRate:        DefaultGlobalRate,
		MaxListingPages:   DefaultMaxListingPages,
		Concurrency:       DefaultConcurrency,
		MaxBodySize:       DefaultMaxBodySize,
		UserAgent:         DefaultUserAgent,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for perfumeharvest.
// On Linux: ~/.local/share/perfumeharvest
// On macOS: ~/Library/Application Support/perfumeharvest
// On Windows: %LOCALAPPDATA%\perfumeharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for perfumeharvest.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
//
// Design decision: We validate once after flags and the config file are
// read, before any request is sent, so that a bad value fails fast.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && (c.SiteConfigs == nil || len(c.SiteConfigs.Sites) == 0) {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Backoff < 0 || c.BackoffMultiplier < 1 {
		return ErrInvalidBackoff
	}

	// Zero is allowed for tests against local servers; negative is not.
	if c.MinInterval < 0 {
		return ErrInvalidMinInterval
	}

	if c.GlobalRate < 0 {
		return ErrInvalidGlobalRate
	}

	if c.MaxListingPages < 1 {
		return ErrInvalidMaxListingPages
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Proxy != "" {
		if _, port, err := net.SplitHostPort(c.Proxy); err != nil || port == "" {
			return ErrInvalidProxy
		}
	}

	return nil
}
