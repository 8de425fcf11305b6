// Package crawler provides the core web crawling functionality.
// It runs a fixed pool of workers over a shared frontier, honoring
// robots.txt permission and crawl-delay per domain, retrying transient
// download failures and feeding every parsed page into the statistics.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/dedup"
	"github.com/masahif/campuscrawl/internal/filter"
	"github.com/masahif/campuscrawl/internal/monitoring"
	"github.com/masahif/campuscrawl/internal/stats"
)

const (
	defaultIdleWait      = 200 * time.Millisecond
	defaultStatsInterval = 10 * time.Second
)

// DefaultCrawler implements the Crawler interface
type DefaultCrawler struct {
	config      *config.CrawlConfig
	frontier    *trackingFrontier
	httpClient  *HTTPClient
	downloader  Downloader
	robots      RobotsFetcher
	politeness  *PolitenessCache
	rateLimiter *RateLimiter
	extractor   LinkExtractor
	aggregator  *stats.Aggregator
	metrics     *monitoring.Metrics
	retryPolicy retrypolicy.RetryPolicy[*Response]

	idleWait      time.Duration
	statsInterval time.Duration

	// State
	stats      CrawlStats
	statsMutex sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// Option customizes a DefaultCrawler.
type Option func(*DefaultCrawler)

// WithDownloader replaces the HTTP transport used for pages.
func WithDownloader(d Downloader) Option {
	return func(c *DefaultCrawler) { c.downloader = d }
}

// WithRobotsFetcher replaces the transport used for robots.txt.
func WithRobotsFetcher(f RobotsFetcher) Option {
	return func(c *DefaultCrawler) { c.robots = f }
}

// WithExtractor replaces the page extractor.
func WithExtractor(e LinkExtractor) Option {
	return func(c *DefaultCrawler) { c.extractor = e }
}

// WithAggregator shares an existing statistics aggregator, for example one
// restored from a previous run.
func WithAggregator(a *stats.Aggregator) Option {
	return func(c *DefaultCrawler) { c.aggregator = a }
}

// WithMetrics records crawl outcomes on m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *DefaultCrawler) { c.metrics = m }
}

// WithIdleWait sets how long a worker waits when the queue is momentarily
// empty but other workers still hold URLs.
func WithIdleWait(d time.Duration) Option {
	return func(c *DefaultCrawler) { c.idleWait = d }
}

// WithStatsInterval sets the period of the progress reporter.
func WithStatsInterval(d time.Duration) Option {
	return func(c *DefaultCrawler) { c.statsInterval = d }
}

// NewCrawler creates a crawler over frontier. Components not supplied
// through options are built from cfg.
func NewCrawler(cfg *config.CrawlConfig, frontier Frontier, opts ...Option) (*DefaultCrawler, error) {
	if frontier == nil {
		return nil, fmt.Errorf("crawler requires a frontier")
	}

	httpClient := NewHTTPClient(ClientOptions{
		UserAgent:       cfg.UserAgent,
		Timeout:         cfg.RequestTimeout,
		MaxRedirects:    cfg.MaxRedirects,
		MaxContentBytes: cfg.MaxContentBytes,
	})

	c := &DefaultCrawler{
		config:        cfg,
		frontier:      newTrackingFrontier(frontier),
		httpClient:    httpClient,
		downloader:    httpClient,
		robots:        httpClient,
		rateLimiter:   NewRateLimiter(0),
		idleWait:      defaultIdleWait,
		statsInterval: defaultStatsInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.aggregator == nil {
		c.aggregator = stats.NewAggregator(cfg.ParentDomain)
	}
	if c.extractor == nil {
		validator := filter.NewValidator(filter.Rules{
			AllowedSuffixes: cfg.AllowedDomains,
			ExcludedHosts:   cfg.ExcludedDomains,
			QueryTraps:      cfg.QueryTraps,
			PathTraps:       cfg.PathTraps,
		})
		c.extractor = NewPageExtractor(ExtractorConfig{
			MinTextRatio:    cfg.MinTextRatio,
			MaxRedirects:    cfg.MaxRedirects,
			MaxContentBytes: cfg.MaxContentBytes,
		}, validator, dedup.NewIndex(), c.aggregator, c.metrics)
	}
	c.politeness = NewPolitenessCache(c.robots, cfg.UserAgent, c.metrics)
	c.retryPolicy = NewRetryPolicy(RetryConfig{
		Attempts: cfg.RetryAttempts,
		Delay:    cfg.RetryDelay,
	}, c.metrics.IncRetries)

	return c, nil
}

// Start adds seedURLs to the frontier and crawls until the frontier is
// drained or ctx is cancelled.
//
// The frontier counts as drained only when it has nothing queued and no
// worker is still processing a URL that might add more.
func (c *DefaultCrawler) Start(ctx context.Context, seedURLs []string) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	defer c.cancel()

	c.statsMutex.Lock()
	c.stats.StartTime = time.Now()
	c.statsMutex.Unlock()

	if len(seedURLs) > 0 {
		slog.Info("Starting crawler", "seed_urls", len(seedURLs))
		for _, seed := range seedURLs {
			if err := c.frontier.AddURL(seed); err != nil {
				return fmt.Errorf("failed to add seed URL %s: %w", seed, err)
			}
		}
	} else {
		slog.Info("Starting crawler - resuming from existing frontier")
	}

	var workers sync.WaitGroup
	for i := 0; i < c.config.Concurrency; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			c.worker(c.ctx, id)
		}(i)
	}

	reporterCtx, stopReporter := context.WithCancel(c.ctx)
	c.wg.Add(1)
	go c.statsReporter(reporterCtx)

	workers.Wait()
	stopReporter()
	c.wg.Wait()

	if c.ctx.Err() != nil {
		slog.Info("Crawling cancelled", "in_flight", c.frontier.pending())
	} else {
		slog.Info("Crawling completed")
	}
	c.checkpointStats()

	return nil
}

// Stop stops the crawling process
func (c *DefaultCrawler) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.httpClient.Close()
	return nil
}

// GetStats returns current crawling statistics
func (c *DefaultCrawler) GetStats() CrawlStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	stats := c.stats
	stats.Duration = time.Since(stats.StartTime)
	return stats
}

// Aggregator returns the page statistics collected so far.
func (c *DefaultCrawler) Aggregator() *stats.Aggregator {
	return c.aggregator
}

// statsReporter periodically reports crawling statistics and, when the
// frontier can store them, checkpoints page statistics for resumed runs.
func (c *DefaultCrawler) statsReporter(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := c.GetStats()
			attrs := []any{
				"crawled", stats.PagesCrawled,
				"skipped", stats.PagesSkipped,
				"errors", stats.ErrorCount,
				"in_flight", c.frontier.pending(),
				"unique_pages", c.aggregator.UniquePageCount(),
				"duration", stats.Duration,
			}
			if src, ok := c.frontier.Frontier.(queueStatusSource); ok {
				if qs, err := src.Status(); err != nil {
					slog.Error("Failed to get queue status", "error", err)
				} else {
					attrs = append(attrs, "queued", qs.Queued, "processing", qs.Processing, "completed", qs.Completed)
				}
			}
			slog.Info("Crawling stats", attrs...)
			c.checkpointStats()
		}
	}
}

func (c *DefaultCrawler) checkpointStats() {
	store, ok := c.frontier.Frontier.(statsStore)
	if !ok {
		return
	}
	if err := store.SaveStats(c.aggregator.Snapshot()); err != nil {
		slog.Error("Failed to save page statistics", "error", err)
	}
}

func (c *DefaultCrawler) recordOutcome(outcome string) {
	c.metrics.IncPages(outcome)

	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	switch outcome {
	case outcomeCompleted:
		c.stats.PagesCrawled++
	case outcomeDenied, outcomeSkipped:
		c.stats.PagesSkipped++
	default:
		c.stats.ErrorCount++
	}
}
