package guard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/perfumeharvest/internal/fetch"
)

// DefaultMinInterval is the default spacing between two fetches to one host.
const DefaultMinInterval = 1 * time.Second

// DomainLimiter spaces fetches to the same host by a minimum interval.
type DomainLimiter struct {
	interval time.Duration
	now      func() time.Time
	sleep    fetch.SleepFunc

	// mu protects slots.
	mu    sync.Mutex
	slots map[string]*domainSlot
}

// domainSlot is the per-host state. The lock channel is a one-element
// semaphore; last and seen are only touched by its holder.
type domainSlot struct {
	lock chan struct{}
	last time.Time
	seen bool
}

// LimiterOption configures a DomainLimiter.
type LimiterOption func(*DomainLimiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *DomainLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLimiterSleepFunc replaces the function used to wait for a slot.
func WithLimiterSleepFunc(fn fetch.SleepFunc) LimiterOption {
	return func(l *DomainLimiter) {
		if fn != nil {
			l.sleep = fn
		}
	}
}

// NewDomainLimiter creates a limiter with the given minimum interval.
func NewDomainLimiter(interval time.Duration, opts ...LimiterOption) *DomainLimiter {
	if interval < 0 {
		interval = 0
	}

	l := &DomainLimiter{
		interval: interval,
		now:      time.Now,
		sleep:    fetch.Sleep,
		slots:    make(map[string]*domainSlot),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Acquire blocks until a fetch to domain may start.
//
// The interval used is the larger of the limiter's interval and atLeast.
// The caller must call release once the fetch attempt has finished,
// successful or not; release stamps the last-access time and frees the slot.
// Calling release more than once is harmless.
func (l *DomainLimiter) Acquire(ctx context.Context, domain string, atLeast time.Duration) (func(), error) {
	slot := l.slot(domain)

	select {
	case slot.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	interval := max(l.interval, atLeast)
	if slot.seen {
		elapsed := l.now().Sub(slot.last)
		if elapsed < interval {
			if err := l.sleep(ctx, interval-elapsed); err != nil {
				<-slot.lock
				return nil, err
			}
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			slot.last = l.now()
			slot.seen = true
			<-slot.lock
		})
	}

	return release, nil
}

// slot returns the state for domain, creating it on first use.
func (l *DomainLimiter) slot(domain string) *domainSlot {
	key := strings.ToLower(domain)

	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &domainSlot{lock: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	return s
}
