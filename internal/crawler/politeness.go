package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/masahif/campuscrawl/internal/monitoring"
)

// PolitenessCache fetches each domain's robots.txt once and remembers the
// crawl permission and crawl-delay it declares for our user agent.
//
// A failed fetch or parse denies permission but leaves the delay at zero.
type PolitenessCache struct {
	fetcher   RobotsFetcher
	userAgent string
	metrics   *monitoring.Metrics

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	once    sync.Once
	allowed bool
	delay   time.Duration
}

// NewPolitenessCache creates a cache that fetches robots.txt with fetcher.
func NewPolitenessCache(fetcher RobotsFetcher, userAgent string, metrics *monitoring.Metrics) *PolitenessCache {
	return &PolitenessCache{
		fetcher:   fetcher,
		userAgent: userAgent,
		metrics:   metrics,
		entries:   make(map[string]*robotsEntry),
	}
}

// Permission reports whether the user agent may fetch the root of domain.
// pageURL is any URL on the domain; its scheme is used for the robots.txt
// request.
func (p *PolitenessCache) Permission(ctx context.Context, domain, pageURL string) bool {
	return p.lookup(ctx, domain, pageURL).allowed
}

// CrawlDelay returns the crawl-delay domain declares for the user agent.
func (p *PolitenessCache) CrawlDelay(ctx context.Context, domain, pageURL string) time.Duration {
	return p.lookup(ctx, domain, pageURL).delay
}

func (p *PolitenessCache) lookup(ctx context.Context, domain, pageURL string) *robotsEntry {
	p.mu.Lock()
	entry, ok := p.entries[domain]
	if !ok {
		entry = &robotsEntry{}
		p.entries[domain] = entry
	}
	p.mu.Unlock()

	entry.once.Do(func() {
		allowed, delay, err := p.fetch(ctx, domain, pageURL)
		if err != nil {
			slog.Warn("robots.txt unavailable, denying domain", "domain", domain, "error", err)
			p.metrics.IncRobotsFetches("error")
			return
		}
		p.metrics.IncRobotsFetches("ok")
		entry.allowed = allowed
		entry.delay = delay
		slog.Debug("Loaded robots.txt", "domain", domain, "allowed", allowed, "crawl_delay", delay)
	})
	return entry
}

func (p *PolitenessCache) fetch(ctx context.Context, domain, pageURL string) (bool, time.Duration, error) {
	scheme := "https"
	if u, err := url.Parse(pageURL); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, domain)

	resp, err := p.fetcher.Get(ctx, robotsURL)
	if err != nil {
		return false, 0, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return false, 0, fmt.Errorf("parse %s: %w", robotsURL, err)
	}

	var delay time.Duration
	if group := robots.FindGroup(p.userAgent); group != nil {
		delay = group.CrawlDelay
	}
	return robots.TestAgent("/", p.userAgent), delay, nil
}
