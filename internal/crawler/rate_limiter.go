package crawler

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests to the same domain across all workers. A
// domain's interval comes from its robots.txt crawl-delay; domains without
// one use the default, where zero means unlimited.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	delay    time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    defaultDelay,
	}
}

// Wait blocks until a request to urlStr's host may proceed.
func (r *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	return r.getLimiter(parsedURL.Host).Wait(ctx)
}

// SetDomainDelay sets the interval for a domain. Setting the interval the
// domain already has keeps its limiter, and any pending reservation, intact.
func (r *RateLimiter) SetDomainDelay(domain string, delay time.Duration) {
	if delay <= 0 {
		delay = r.delay
	}
	limit := limitFor(delay)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.limiters[domain]; ok && existing.Limit() == limit {
		return
	}
	r.limiters[domain] = rate.NewLimiter(limit, 1)
}

// getLimiter gets or creates a rate limiter for a domain
func (r *RateLimiter) getLimiter(domain string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[domain]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again in case another goroutine created it
	if limiter, exists := r.limiters[domain]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(limitFor(r.delay), 1)
	r.limiters[domain] = limiter

	return limiter
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
