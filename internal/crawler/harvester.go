package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/perfumeharvest/internal/extract"
	"github.com/nao1215/perfumeharvest/internal/fetch"
	"github.com/nao1215/perfumeharvest/internal/guard"
	"github.com/nao1215/perfumeharvest/internal/log"
	"github.com/nao1215/perfumeharvest/internal/model"
)

// DefaultMaxListingPages caps the listing walk when no cap is configured.
const DefaultMaxListingPages = 50

// Fetcher retrieves a page. *fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) (*fetch.Result, error)
}

// Gate grants permission to fetch a URL. *guard.Guard satisfies it.
type Gate interface {
	Enforce(ctx context.Context, rawURL string) (release func(), err error)
}

// Store persists harvested records. Upserts are keyed by Perfume.ID and the
// last write wins.
type Store interface {
	UpsertPerfume(ctx context.Context, p *model.Perfume) error
}

// Harvester crawls listing pages of one shop and stores the products found
// on them.
//
// A Harvester is not safe for concurrent use; run one per site. Several
// harvesters may share one Gate.
type Harvester struct {
	fetcher Fetcher
	gate    Gate
	store   Store

	// site names the shop in reports and logs.
	site string

	// baseURL is the URL seeds are resolved against.
	baseURL string

	// maxListingPages limits how many listing pages are taken from the
	// frontier, failed ones included.
	maxListingPages int

	// ignorePatterns are URL path patterns to skip.
	// Patterns use glob syntax (e.g., "/products/gift-*", "/sale/*").
	ignorePatterns []string

	// headers are sent with every request of this harvester.
	headers http.Header

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithSite sets the site name used in the run report.
func WithSite(name string) Option {
	return func(h *Harvester) {
		h.site = name
	}
}

// WithBaseURL sets the URL relative seeds are resolved against.
func WithBaseURL(base string) Option {
	return func(h *Harvester) {
		h.baseURL = base
	}
}

// WithMaxListingPages sets the maximum number of listing pages to visit.
// Values below 1 are ignored.
func WithMaxListingPages(n int) Option {
	return func(h *Harvester) {
		if n >= 1 {
			h.maxListingPages = n
		}
	}
}

// WithIgnorePatterns sets URL path patterns to skip.
// Matching pagination links never enter the frontier and matching product
// links are never harvested.
func WithIgnorePatterns(patterns []string) Option {
	return func(h *Harvester) {
		h.ignorePatterns = patterns
	}
}

// WithHeaders sets extra request headers for this harvester.
func WithHeaders(headers map[string]string) Option {
	return func(h *Harvester) {
		for k, v := range headers {
			h.headers.Set(k, v)
		}
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harvester) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHarvester creates a Harvester.
//
// Design decision: We require the fetcher, gate and store up front because:
//  1. The gate must be shared between harvesters of one process so that
//     per-domain spacing holds across sites
//  2. Tests substitute each of them independently
func NewHarvester(fetcher Fetcher, gate Gate, store Store, opts ...Option) *Harvester {
	h := &Harvester{
		fetcher:         fetcher,
		gate:            gate,
		store:           store,
		maxListingPages: DefaultMaxListingPages,
		headers:         make(http.Header),
		now:             time.Now,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// outcome is the result of processing one URL.
type outcome struct {
	perfume *model.Perfume
	failure *model.Failure
}

// Run harvests the shop starting from the given listing seeds.
//
// The returned report is never nil. When ctx ends before the run is
// complete, the report covers the work done so far, Canceled is set and the
// context error is returned.
func (h *Harvester) Run(ctx context.Context, seeds []string) (*model.RunReport, error) {
	report := model.NewRunReport(h.siteName(), h.baseURL, h.now().UTC())
	return report, h.Harvest(ctx, report, seeds)
}

// Harvest is Run for a report created by the caller. The report's RunID is
// kept; its site, base URL and start time are set by the harvester.
func (h *Harvester) Harvest(ctx context.Context, report *model.RunReport, seeds []string) error {
	report.Site = h.siteName()
	report.BaseURL = h.baseURL
	report.StartedAt = h.now().UTC()

	h.logger.Info(log.EventRunStart,
		"site", report.Site,
		"run_id", report.RunID,
		"seeds", len(seeds),
	)

	order, refs := h.collectListings(ctx, report, seeds)
	report.DiscoveredProductURLs = order

	for _, productURL := range order {
		if ctx.Err() != nil {
			break
		}

		out := h.harvestProduct(ctx, refs[productURL])
		if out.failure != nil {
			report.AddFailure(*out.failure)
			continue
		}
		report.ScrapedCount++
	}

	report.FinishedAt = h.now().UTC()
	report.Canceled = ctx.Err() != nil

	h.logger.Info(log.EventRunEnd,
		"site", report.Site,
		"run_id", report.RunID,
		"listing_pages", report.ListingPagesVisited,
		"discovered", len(report.DiscoveredProductURLs),
		"scraped", report.ScrapedCount,
		"failed_listings", len(report.FailedListingURLs),
		"failed_products", len(report.FailedProductURLs),
		"canceled", report.Canceled,
	)

	if report.Canceled {
		return fmt.Errorf("harvest of %s interrupted: %w", report.Site, ctx.Err())
	}
	return nil
}

// collectListings walks listing pages breadth-first and returns product URLs
// in discovery order together with their first-seen references.
func (h *Harvester) collectListings(
	ctx context.Context,
	report *model.RunReport,
	seeds []string,
) ([]string, map[string]extract.ListingProduct) {
	queue := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		abs, err := h.resolveSeed(seed)
		if err != nil {
			report.AddFailure(model.Failure{
				URL:     seed,
				Phase:   model.PhaseListing,
				Kind:    model.FailureOther,
				Message: err.Error(),
			})
			continue
		}
		queue = append(queue, abs)
	}

	visited := make(map[string]bool)
	order := make([]string, 0)
	refs := make(map[string]extract.ListingProduct)

	for len(queue) > 0 && len(visited) < h.maxListingPages {
		if ctx.Err() != nil {
			break
		}

		listingURL := queue[0]
		queue = queue[1:]

		key := normalizeURL(listingURL)
		if visited[key] {
			continue
		}
		visited[key] = true
		report.ListingPagesVisited++

		res, err := h.retrieve(ctx, listingURL)
		if err != nil {
			report.AddFailure(h.failure(ctx, listingURL, model.PhaseListing, err))
			continue
		}

		products := extract.ExtractProducts(res.Body, res.FinalURL)
		for _, p := range products {
			if ignored(h.ignorePatterns, p.URL) {
				continue
			}
			if _, seen := refs[p.URL]; seen {
				continue
			}
			refs[p.URL] = p
			order = append(order, p.URL)
		}

		pages := extract.ExtractPaginationLinks(res.Body, res.FinalURL)
		for _, next := range pages {
			if visited[normalizeURL(next)] || ignored(h.ignorePatterns, next) {
				continue
			}
			queue = append(queue, next)
		}

		h.logger.Debug("listing page scanned",
			"url", listingURL,
			"products", len(products),
			"pagination_links", len(pages),
		)
	}

	return order, refs
}

// harvestProduct fetches, extracts and stores one product.
func (h *Harvester) harvestProduct(ctx context.Context, ref extract.ListingProduct) outcome {
	res, err := h.retrieve(ctx, ref.URL)
	if err != nil {
		f := h.failure(ctx, ref.URL, model.PhaseProduct, err)
		return outcome{failure: &f}
	}

	fields := extract.ExtractProduct(res.Body, res.FinalURL).Normalize()

	id, err := perfumeID(ref.URL)
	if err != nil {
		f := h.parseFailure(ctx, ref.URL, err)
		return outcome{failure: &f}
	}

	p := &model.Perfume{
		ID:            id,
		Name:          ref.Name,
		URL:           ref.URL,
		PriceMin:      ref.PriceMin,
		PriceMax:      ref.PriceMax,
		GenderTags:    fields.GenderTags,
		ScentFamilies: fields.ScentFamilies,
		MoleculeTags:  fields.MoleculeTags,
		NotesTop:      fields.NotesTop,
		NotesMiddle:   fields.NotesMiddle,
		NotesBase:     fields.NotesBase,
		Description:   fields.Description,
		ImageURLs:     fields.ImageURLs,
		LastScrapedAt: h.now().UTC(),
	}
	p.Clean()

	if err := p.Validate(); err != nil {
		f := h.parseFailure(ctx, ref.URL, err)
		return outcome{failure: &f}
	}

	if err := h.store.UpsertPerfume(ctx, p); err != nil {
		f := h.failure(ctx, ref.URL, model.PhaseProduct, fmt.Errorf("failed to store perfume %s: %w", p.ID, &storeError{err: err}))
		return outcome{failure: &f}
	}

	h.logger.Info(log.EventRecordStored,
		"url", ref.URL,
		"perfume_id", p.ID,
		"notes", len(p.NotesAll()),
	)

	return outcome{perfume: p}
}

// retrieve passes the gate, fetches rawURL and releases the gate slot.
func (h *Harvester) retrieve(ctx context.Context, rawURL string) (*fetch.Result, error) {
	release, err := h.gate.Enforce(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer release()

	res, err := h.fetcher.Fetch(ctx, rawURL, h.headers)
	if err != nil {
		return nil, err
	}

	h.logger.Debug(log.EventURLFetched,
		"url", rawURL,
		"final_url", res.FinalURL,
		"status", res.StatusCode,
		"bytes", len(res.Body),
	)
	return res, nil
}

// storeError marks an error returned by the Store.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// failure classifies err and logs it.
func (h *Harvester) failure(ctx context.Context, rawURL string, phase model.Phase, err error) model.Failure {
	f := model.Failure{
		URL:     rawURL,
		Phase:   phase,
		Kind:    classify(ctx, err),
		Message: err.Error(),
	}

	var statusErr *fetch.HTTPStatusError
	if errors.As(err, &statusErr) {
		f.StatusCode = statusErr.StatusCode
	}

	h.logger.Warn(log.EventURLFailed,
		"url", rawURL,
		"phase", phase.String(),
		"kind", f.Kind.String(),
		"status", f.StatusCode,
		"error", err,
	)
	return f
}

// parseFailure records a product whose page was fetched but could not be
// turned into a valid record.
func (h *Harvester) parseFailure(ctx context.Context, rawURL string, err error) model.Failure {
	f := model.Failure{
		URL:     rawURL,
		Phase:   model.PhaseProduct,
		Kind:    classify(ctx, err),
		Message: err.Error(),
	}

	h.logger.Warn(log.EventParseFailed,
		"url", rawURL,
		"kind", f.Kind.String(),
		"error", err,
	)
	return f
}

// classify maps an error to a failure kind.
//
// A failure is canceled only when ctx is done and err stems from it. A
// per-attempt client timeout also wraps context.DeadlineExceeded but is a
// transport failure.
func classify(ctx context.Context, err error) model.FailureKind {
	var (
		transportErr *fetch.TransportError
		statusErr    *fetch.HTTPStatusError
		deniedErr    *guard.AccessDeniedError
		identityErr  *IdentityDerivationError
		storeErr     *storeError
	)

	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return model.FailureCanceled
	case errors.As(err, &deniedErr):
		return model.FailureAccessDenied
	case errors.As(err, &statusErr):
		return model.FailureHTTPStatus
	case errors.As(err, &transportErr):
		return model.FailureTransport
	case errors.As(err, &identityErr):
		return model.FailureIdentity
	case errors.Is(err, model.ErrInvalidPerfume), errors.Is(err, model.ErrInvalidPriceRange):
		return model.FailureValidation
	case errors.As(err, &storeErr):
		return model.FailureStore
	default:
		return model.FailureOther
	}
}

// resolveSeed makes a seed absolute against the base URL.
func (h *Harvester) resolveSeed(seed string) (string, error) {
	ref, err := url.Parse(seed)
	if err != nil {
		return "", fmt.Errorf("invalid seed %q: %w", seed, err)
	}

	if h.baseURL != "" {
		base, err := url.Parse(h.baseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base URL %q: %w", h.baseURL, err)
		}
		ref = base.ResolveReference(ref)
	}

	if !ref.IsAbs() || ref.Host == "" {
		return "", fmt.Errorf("seed %q is not absolute and no base URL is set", seed)
	}
	ref.Fragment = ""
	return ref.String(), nil
}

// siteName returns the configured site name or the base URL host.
func (h *Harvester) siteName() string {
	if h.site != "" {
		return h.site
	}
	if u, err := url.Parse(h.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return h.baseURL
}
