package guard

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/time/rate"
)

// Guard enforces robots.txt and per-domain spacing before each fetch.
type Guard struct {
	robots  *RobotsPolicy
	limiter *DomainLimiter

	// global optionally caps throughput across all domains.
	global *rate.Limiter

	// honorCrawlDelay lets a robots.txt Crawl-delay widen the interval.
	honorCrawlDelay bool
}

// Option configures a Guard.
type Option func(*Guard)

// WithGlobalRate caps the total fetch rate across all domains.
// A non-positive perSecond leaves throughput uncapped.
func WithGlobalRate(perSecond float64, burst int) Option {
	return func(g *Guard) {
		if perSecond <= 0 {
			g.global = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.global = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCrawlDelay makes the guard honor robots.txt Crawl-delay directives
// that ask for more spacing than the limiter's interval.
func WithCrawlDelay(honor bool) Option {
	return func(g *Guard) {
		g.honorCrawlDelay = honor
	}
}

// New creates a Guard from a robots policy and a domain limiter.
func New(robots *RobotsPolicy, limiter *DomainLimiter, opts ...Option) *Guard {
	g := &Guard{
		robots:  robots,
		limiter: limiter,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Enforce checks robots.txt for rawURL and then waits for a slot on its
// domain. It returns *AccessDeniedError when robots.txt forbids the URL.
//
// On success the caller owns the slot and must call release after the
// fetch attempt completes.
func (g *Guard) Enforce(ctx context.Context, rawURL string) (release func(), err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: not absolute", rawURL)
	}

	if !g.robots.Allowed(ctx, u) {
		return nil, &AccessDeniedError{URL: rawURL, UserAgent: g.robots.userAgent}
	}

	var atLeast = g.limiter.interval
	if g.honorCrawlDelay {
		atLeast = max(atLeast, g.robots.CrawlDelay(ctx, u))
	}

	release, err = g.limiter.Acquire(ctx, u.Host, atLeast)
	if err != nil {
		return nil, err
	}

	if g.global != nil {
		if err := g.global.Wait(ctx); err != nil {
			release()
			return nil, err
		}
	}

	return release, nil
}
