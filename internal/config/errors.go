package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.Sites() so that
// callers can use errors.Is() for programmatic handling.
var (
	// ErrNoTarget is returned when no site is named and the config file
	// defines none.
	ErrNoTarget = errors.New("no target specified: name a configured site, pass a listing URL or add sites to the config file")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxAttempts is returned when fewer than one attempt is allowed.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be at least 1")

	// ErrInvalidBackoff is returned for a negative backoff or a multiplier below 1.
	ErrInvalidBackoff = errors.New("invalid backoff: delay must be non-negative and multiplier at least 1")

	// ErrInvalidMinInterval is returned when the per-host interval is negative.
	ErrInvalidMinInterval = errors.New("invalid min interval: must be non-negative")

	// ErrInvalidGlobalRate is returned when the global rate is negative.
	ErrInvalidGlobalRate = errors.New("invalid global rate: must be non-negative")

	// ErrInvalidMaxListingPages is returned when the listing page cap is below 1.
	ErrInvalidMaxListingPages = errors.New("invalid max listing pages: must be at least 1")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned when the proxy is not host:port.
	ErrInvalidProxy = errors.New("invalid proxy: expected host:port")

	// ErrUnknownSite is returned for a target that is neither a configured
	// site nor an absolute http(s) URL.
	ErrUnknownSite = errors.New("unknown site")

	// ErrMissingBaseURL is returned for a configured site without baseURL.
	ErrMissingBaseURL = errors.New("site has no baseURL")
)
