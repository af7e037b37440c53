package guard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/perfumeharvest/internal/fetch"
)

// stubFetcher serves robots.txt bodies keyed by URL.
type stubFetcher struct {
	bodies map[string]string
	err    error
	calls  atomic.Int32
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string, _ http.Header) (*fetch.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	body, ok := s.bodies[rawURL]
	if !ok {
		return nil, &fetch.HTTPStatusError{URL: rawURL, StatusCode: http.StatusNotFound}
	}
	return &fetch.Result{FinalURL: rawURL, StatusCode: http.StatusOK, Body: body}, nil
}

// sleepRecorder records requested sleeps without blocking.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

// TestGuardEnforce tests the robots check of Guard.Enforce.
func TestGuardEnforce(t *testing.T) {
	t.Parallel()

	t.Run("denies disallowed paths and allows the rest", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{
			"https://shop.example/robots.txt": "User-agent: *\nDisallow: /private\n",
		}}
		rec := &sleepRecorder{}
		g := New(
			NewRobotsPolicy(fetcher, fetch.DefaultUserAgent),
			NewDomainLimiter(0, WithLimiterSleepFunc(rec.sleep)),
		)

		_, err := g.Enforce(context.Background(), "https://shop.example/private/page")
		var denied *AccessDeniedError
		if !errors.As(err, &denied) {
			t.Fatalf("expected *AccessDeniedError, got %v", err)
		}
		if denied.URL != "https://shop.example/private/page" {
			t.Errorf("unexpected denied URL %q", denied.URL)
		}

		release, err := g.Enforce(context.Background(), "https://shop.example/products/amber")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()
	})

	t.Run("explicit allow overrides a shorter disallow", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{
			"https://shop.example/robots.txt": "User-agent: *\nDisallow: /shop\nAllow: /shop/products\n",
		}}
		g := New(NewRobotsPolicy(fetcher, fetch.DefaultUserAgent), NewDomainLimiter(0))

		release, err := g.Enforce(context.Background(), "https://shop.example/shop/products/amber")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()

		if _, err := g.Enforce(context.Background(), "https://shop.example/shop/cart"); err == nil {
			t.Error("expected /shop/cart to be denied")
		}
	})

	t.Run("fails open when robots.txt cannot be fetched", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{err: &fetch.TransportError{URL: "x", Err: errors.New("connection refused")}}
		g := New(NewRobotsPolicy(fetcher, fetch.DefaultUserAgent), NewDomainLimiter(0))

		release, err := g.Enforce(context.Background(), "https://down.example/anything")
		if err != nil {
			t.Fatalf("expected fail-open, got %v", err)
		}
		release()
	})

	t.Run("fails open on a missing robots.txt", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{}}
		g := New(NewRobotsPolicy(fetcher, fetch.DefaultUserAgent), NewDomainLimiter(0))

		release, err := g.Enforce(context.Background(), "https://shop.example/private")
		if err != nil {
			t.Fatalf("expected fail-open, got %v", err)
		}
		release()
	})

	t.Run("fetches robots.txt once per origin", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{
			"https://shop.example/robots.txt":  "User-agent: *\nDisallow:\n",
			"https://other.example/robots.txt": "User-agent: *\nDisallow:\n",
		}}
		g := New(NewRobotsPolicy(fetcher, fetch.DefaultUserAgent), NewDomainLimiter(0))

		for _, u := range []string{
			"https://shop.example/a",
			"https://shop.example/b",
			"https://other.example/a",
			"https://shop.example/c",
		} {
			release, err := g.Enforce(context.Background(), u)
			if err != nil {
				t.Fatalf("unexpected error for %s: %v", u, err)
			}
			release()
		}

		if got := fetcher.calls.Load(); got != 2 {
			t.Errorf("expected 2 robots fetches, got %d", got)
		}
	})

	t.Run("rejects relative URLs", func(t *testing.T) {
		t.Parallel()

		g := New(NewRobotsPolicy(&stubFetcher{}, fetch.DefaultUserAgent), NewDomainLimiter(0))
		if _, err := g.Enforce(context.Background(), "/products/amber"); err == nil {
			t.Error("expected error for relative URL")
		}
	})

	t.Run("honors crawl-delay when enabled", func(t *testing.T) {
		t.Parallel()

		fetcher := &stubFetcher{bodies: map[string]string{
			"https://slow.example/robots.txt": "User-agent: *\nCrawl-delay: 5\n",
		}}
		rec := &sleepRecorder{}
		g := New(
			NewRobotsPolicy(fetcher, fetch.DefaultUserAgent),
			NewDomainLimiter(time.Second, WithClock(fixedClock()), WithLimiterSleepFunc(rec.sleep)),
			WithCrawlDelay(true),
		)

		for range 2 {
			release, err := g.Enforce(context.Background(), "https://slow.example/page")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			release()
		}

		sleeps := rec.recorded()
		if len(sleeps) != 1 || sleeps[0] != 5*time.Second {
			t.Errorf("expected one 5s sleep, got %v", sleeps)
		}
	})
}

// TestDomainLimiter tests per-domain spacing.
func TestDomainLimiter(t *testing.T) {
	t.Parallel()

	t.Run("spaces the same domain and leaves others alone", func(t *testing.T) {
		t.Parallel()

		rec := &sleepRecorder{}
		limiter := NewDomainLimiter(time.Second, WithClock(fixedClock()), WithLimiterSleepFunc(rec.sleep))

		for _, domain := range []string{"a.example", "a.example", "b.example"} {
			release, err := limiter.Acquire(context.Background(), domain, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			release()
		}

		sleeps := rec.recorded()
		if len(sleeps) != 1 {
			t.Fatalf("expected exactly one sleep, got %v", sleeps)
		}
		if sleeps[0] != time.Second {
			t.Errorf("expected 1s sleep, got %v", sleeps[0])
		}
	})

	t.Run("sleeps only for the remaining interval", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		rec := &sleepRecorder{}
		limiter := NewDomainLimiter(time.Second, WithClock(clock), WithLimiterSleepFunc(rec.sleep))

		release, err := limiter.Acquire(context.Background(), "a.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()

		mu.Lock()
		now = now.Add(300 * time.Millisecond)
		mu.Unlock()

		release, err = limiter.Acquire(context.Background(), "a.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()

		sleeps := rec.recorded()
		if len(sleeps) != 1 || sleeps[0] != 700*time.Millisecond {
			t.Errorf("expected one 700ms sleep, got %v", sleeps)
		}
	})

	t.Run("domain keys are case-insensitive", func(t *testing.T) {
		t.Parallel()

		rec := &sleepRecorder{}
		limiter := NewDomainLimiter(time.Second, WithClock(fixedClock()), WithLimiterSleepFunc(rec.sleep))

		for _, domain := range []string{"Shop.Example", "shop.example"} {
			release, err := limiter.Acquire(context.Background(), domain, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			release()
		}

		if len(rec.recorded()) != 1 {
			t.Errorf("expected one sleep, got %v", rec.recorded())
		}
	})

	t.Run("releasing twice is harmless", func(t *testing.T) {
		t.Parallel()

		limiter := NewDomainLimiter(0)
		release, err := limiter.Acquire(context.Background(), "a.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()
		release()

		release, err = limiter.Acquire(context.Background(), "a.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		release()
	})

	t.Run("waiting for a held slot respects context", func(t *testing.T) {
		t.Parallel()

		limiter := NewDomainLimiter(0)
		release, err := limiter.Acquire(context.Background(), "a.example", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if _, err := limiter.Acquire(ctx, "a.example", 0); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

// TestRequestPath tests the path robots rules are matched against.
func TestRequestPath(t *testing.T) {
	t.Parallel()

	g := New(NewRobotsPolicy(&stubFetcher{bodies: map[string]string{
		"https://shop.example/robots.txt": "User-agent: *\nDisallow: /search?q=\n",
	}}, fetch.DefaultUserAgent), NewDomainLimiter(0))

	_, err := g.Enforce(context.Background(), "https://shop.example/search?q=rose")
	if err == nil || !strings.Contains(err.Error(), "robots.txt forbids") {
		t.Errorf("expected query to be matched, got %v", err)
	}
}
