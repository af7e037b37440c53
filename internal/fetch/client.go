package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Default fetch settings.
const (
	// DefaultUserAgent identifies the harvester in server logs.
	DefaultUserAgent = "PerfumeHarvest/1.0 (+https://github.com/nao1215/perfumeharvest)"

	// DefaultTimeout bounds a single attempt, body read included.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultMaxAttempts is the total number of attempts, the first included.
	DefaultMaxAttempts = DefaultMaxRetries + 1

	// DefaultBackoff is the sleep before the second attempt.
	DefaultBackoff = 1 * time.Second

	// DefaultBackoffMultiplier grows the backoff after every retry.
	DefaultBackoffMultiplier = 2.0

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Result is the outcome of one successful fetch.
type Result struct {
	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Body is the response body decoded to UTF-8.
	Body string

	// Headers are the response headers of the final response.
	Headers http.Header
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client fetches pages with bounded exponential-backoff retries.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxAttempts int
	backoff     time.Duration
	multiplier  float64
	maxBodySize int64
	headers     http.Header
	sleep       SleepFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the User-Agent sent with every attempt.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxAttempts sets the total attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial backoff interval.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithBackoffMultiplier sets the factor applied to the backoff after each retry.
func WithBackoffMultiplier(m float64) Option {
	return func(c *Client) {
		if m >= 1 {
			c.multiplier = m
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHeaders sets headers sent with every request.
// Per-call headers passed to Fetch take precedence.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers.Set(k, v)
		}
	}
}

// WithSleepFunc replaces the function used to wait between attempts.
func WithSleepFunc(fn SleepFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// New creates a Client with the default policy.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		multiplier:  DefaultBackoffMultiplier,
		maxBodySize: DefaultMaxBodySize,
		headers:     make(http.Header),
		sleep:       Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// UserAgent returns the User-Agent the client sends by default.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Fetch performs a GET request for rawURL, retrying transient failures.
//
// The backoff sleep happens before a retry, never before the first attempt.
// When the budget is exhausted the error of the last attempt is returned
// unchanged, so callers can still tell a *TransportError from an
// *HTTPStatusError.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers http.Header) (*Result, error) {
	delay := c.backoff

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * c.multiplier)
		}

		result, err := c.do(ctx, rawURL, headers)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, rawURL string, headers http.Header) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.7,de;q=0.5")
	for k, v := range c.headers {
		req.Header[k] = v
	}
	for k, v := range headers {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // draining for connection reuse
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

// readBody reads at most maxBodySize bytes and converts them to UTF-8.
// Bytes that remain invalid after conversion become U+FFFD.
func (c *Client) readBody(resp *http.Response) (string, error) {
	limited := io.LimitReader(resp.Body, c.maxBodySize)

	reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown charset label: fall back to the raw bytes.
		reader = limited
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(data), "�"), nil
}
