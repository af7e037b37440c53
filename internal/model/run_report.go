package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the crawl stage in which a URL failed.
type Phase string

const (
	// PhaseListing marks failures while traversing listing pages.
	PhaseListing Phase = "listing"
	// PhaseProduct marks failures while harvesting product pages.
	PhaseProduct Phase = "product"
)

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// FailureKind classifies why a URL failed.
type FailureKind string

const (
	// FailureTransport is a connection, timeout or body read failure.
	FailureTransport FailureKind = "transport"
	// FailureHTTPStatus is a non-success HTTP status.
	FailureHTTPStatus FailureKind = "http_status"
	// FailureAccessDenied is a URL disallowed by robots.txt.
	FailureAccessDenied FailureKind = "access_denied"
	// FailureIdentity is a product URL no identifier could be derived from.
	FailureIdentity FailureKind = "identity"
	// FailureValidation is a record rejected by Perfume.Validate.
	FailureValidation FailureKind = "validation"
	// FailureStore is a record the persistence layer did not accept.
	FailureStore FailureKind = "store"
	// FailureCanceled is a URL abandoned because the run was canceled.
	FailureCanceled FailureKind = "canceled"
	// FailureOther is anything else.
	FailureOther FailureKind = "other"
)

// String returns the kind name.
func (k FailureKind) String() string {
	return string(k)
}

// IsValid reports whether k is a known failure kind.
func (k FailureKind) IsValid() bool {
	switch k {
	case FailureTransport, FailureHTTPStatus, FailureAccessDenied, FailureIdentity,
		FailureValidation, FailureStore, FailureCanceled, FailureOther:
		return true
	default:
		return false
	}
}

// Failure describes one URL that could not be processed.
type Failure struct {
	URL   string      `json:"url"`
	Phase Phase       `json:"phase"`
	Kind  FailureKind `json:"kind"`

	// StatusCode is set for FailureHTTPStatus.
	StatusCode int `json:"status_code,omitempty"`

	Message string `json:"message"`
}

// RunReport is the outcome of one harvesting run over a site.
//
// DiscoveredProductURLs keeps discovery order. The failure URL lists keep
// the order in which failures happened; Failures holds the details of both.
type RunReport struct {
	// RunID identifies the run in the database.
	RunID string `json:"run_id"`

	// Site is the configured site name, or the base URL host.
	Site string `json:"site"`

	// BaseURL is the URL seeds were resolved against.
	BaseURL string `json:"base_url"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ListingPagesVisited counts listing pages taken from the frontier,
	// failed ones included.
	ListingPagesVisited int `json:"listing_pages_visited"`

	DiscoveredProductURLs []string `json:"discovered_product_urls"`
	ScrapedCount          int      `json:"scraped_count"`
	FailedListingURLs     []string `json:"failed_listing_urls"`
	FailedProductURLs     []string `json:"failed_product_urls"`

	Failures []Failure `json:"failures"`

	// Canceled is true when the run stopped early because its context ended.
	Canceled bool `json:"canceled"`

	// Error is the first step error of the run, if any.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates an empty report with a fresh run ID.
func NewRunReport(site, baseURL string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:                 uuid.NewString(),
		Site:                  site,
		BaseURL:               baseURL,
		StartedAt:             startedAt,
		DiscoveredProductURLs: []string{},
		FailedListingURLs:     []string{},
		FailedProductURLs:     []string{},
		Failures:              []Failure{},
	}
}

// AddFailure records a failure and appends its URL to the list of its phase.
func (r *RunReport) AddFailure(f Failure) {
	switch f.Phase {
	case PhaseListing:
		r.FailedListingURLs = append(r.FailedListingURLs, f.URL)
	case PhaseProduct:
		r.FailedProductURLs = append(r.FailedProductURLs, f.URL)
	}
	r.Failures = append(r.Failures, f)
}

// SuccessRate is the share of discovered products that were stored.
// It is 0 when nothing was discovered.
func (r *RunReport) SuccessRate() float64 {
	if len(r.DiscoveredProductURLs) == 0 {
		return 0
	}
	return float64(r.ScrapedCount) / float64(len(r.DiscoveredProductURLs))
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailuresByKind counts failures per kind.
func (r *RunReport) FailuresByKind() map[FailureKind]int {
	counts := make(map[FailureKind]int)
	for _, f := range r.Failures {
		counts[f.Kind]++
	}
	return counts
}
