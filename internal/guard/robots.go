package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/nao1215/perfumeharvest/internal/fetch"
)

// Fetcher retrieves a document. *fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) (*fetch.Result, error)
}

// RobotsPolicy evaluates robots.txt rules for one user agent.
//
// Rules are evaluated by the temoto/robotstxt matcher: the longest matching
// path wins, so an explicit Allow overrides a shorter Disallow.
type RobotsPolicy struct {
	fetcher   Fetcher
	userAgent string
	logger    *slog.Logger

	// mu protects groups.
	mu sync.RWMutex

	// groups maps an origin to the rule group that applies to userAgent.
	// A nil group means every path is allowed.
	groups map[string]*robotstxt.Group

	// flight collapses concurrent loads of the same origin.
	flight singleflight.Group
}

// RobotsOption configures a RobotsPolicy.
type RobotsOption func(*RobotsPolicy)

// WithRobotsLogger sets the logger used to report fail-open decisions.
func WithRobotsLogger(logger *slog.Logger) RobotsOption {
	return func(p *RobotsPolicy) {
		p.logger = logger
	}
}

// NewRobotsPolicy creates a policy that fetches robots.txt through fetcher
// and evaluates it for userAgent.
func NewRobotsPolicy(fetcher Fetcher, userAgent string, opts ...RobotsOption) *RobotsPolicy {
	p := &RobotsPolicy{
		fetcher:   fetcher,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Allowed reports whether target may be fetched.
func (p *RobotsPolicy) Allowed(ctx context.Context, target *url.URL) bool {
	group := p.group(ctx, target)
	if group == nil {
		return true
	}
	return group.Test(requestPath(target))
}

// CrawlDelay returns the Crawl-delay that robots.txt asks of the user agent
// for target's origin, or zero.
func (p *RobotsPolicy) CrawlDelay(ctx context.Context, target *url.URL) time.Duration {
	group := p.group(ctx, target)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// group returns the cached rule group for target's origin, loading it on
// first use.
func (p *RobotsPolicy) group(ctx context.Context, target *url.URL) *robotstxt.Group {
	key := origin(target)

	p.mu.RLock()
	group, ok := p.groups[key]
	p.mu.RUnlock()
	if ok {
		return group
	}

	v, _, _ := p.flight.Do(key, func() (any, error) { //nolint:errcheck // the loader never fails
		p.mu.RLock()
		cached, ok := p.groups[key]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}

		loaded := p.load(ctx, key)

		// A cancelled load says nothing about the origin; do not cache it.
		if ctx.Err() == nil {
			p.mu.Lock()
			p.groups[key] = loaded
			p.mu.Unlock()
		}
		return loaded, nil
	})

	group, _ = v.(*robotstxt.Group) //nolint:errcheck // nil means allow all
	return group
}

// load fetches and parses robots.txt for an origin.
// Every failure yields nil, which allows all paths.
func (p *RobotsPolicy) load(ctx context.Context, originURL string) *robotstxt.Group {
	robotsURL := originURL + "/robots.txt"

	headers := http.Header{}
	headers.Set("User-Agent", p.userAgent)

	res, err := p.fetcher.Fetch(ctx, robotsURL, headers)
	if err != nil {
		p.logger.Debug("robots.txt unavailable, allowing all paths",
			"url", robotsURL,
			"error", err,
		)
		return nil
	}

	data, err := robotstxt.FromBytes([]byte(res.Body))
	if err != nil {
		p.logger.Debug("robots.txt unparsable, allowing all paths",
			"url", robotsURL,
			"error", err,
		)
		return nil
	}

	return data.FindGroup(p.userAgent)
}

// origin returns scheme://host for u.
func origin(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// requestPath returns the path and query robots rules are matched against.
func requestPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
