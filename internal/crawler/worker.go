package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/masahif/campuscrawl/internal/filter"
)

// worker processes URLs from the frontier until it is drained or ctx ends.
// No single URL can stop the loop: errors and panics are contained per URL.
func (c *DefaultCrawler) worker(ctx context.Context, id int) {
	c.metrics.WorkerStarted()
	defer c.metrics.WorkerStopped()

	slog.Debug("Worker started", "worker_id", id)
	defer slog.Debug("Worker stopped", "worker_id", id)

	for ctx.Err() == nil {
		rawURL, drained, err := c.frontier.claim()
		if err != nil {
			slog.Error("Worker failed to get from frontier", "worker_id", id, "error", err)
			sleep(ctx, c.idleWait)
			continue
		}
		if rawURL == "" {
			if drained {
				slog.Debug("Worker found frontier drained, exiting", "worker_id", id)
				return
			}
			sleep(ctx, c.idleWait)
			continue
		}

		outcome := c.processURL(ctx, id, rawURL)
		c.frontier.release()
		c.recordOutcome(outcome)

		if outcome == outcomeCompleted {
			sleep(ctx, c.config.RequestDelay)
		}
	}
}

// processURL runs one unit of work behind a recovery boundary.
func (c *DefaultCrawler) processURL(ctx context.Context, id int, rawURL string) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Worker recovered from panic", "worker_id", id, "url", rawURL, "panic", fmt.Sprint(r))
			outcome = outcomePanic
		}
	}()

	outcome, err := c.crawlURL(ctx, id, rawURL)
	if err != nil {
		slog.Error("Worker failed to process URL", "worker_id", id, "url", rawURL, "outcome", outcome, "error", err)
	}
	return outcome
}

// crawlURL fetches one URL and feeds its links back into the frontier.
// URLs that are denied, skipped or fail to download are abandoned: they are
// not marked complete.
func (c *DefaultCrawler) crawlURL(ctx context.Context, id int, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return outcomeMalformed, fmt.Errorf("%w: %v", filter.ErrMalformedURL, err)
	}
	domain := parsed.Host
	if domain == "" {
		return outcomeMalformed, fmt.Errorf("%w: %q has no host", filter.ErrMalformedURL, rawURL)
	}

	delay := c.politeness.CrawlDelay(ctx, domain, rawURL)
	if !c.politeness.Permission(ctx, domain, rawURL) {
		slog.Info("URL disallowed by robots.txt", "worker_id", id, "url", rawURL, "domain", domain)
		return outcomeDenied, nil
	}

	c.rateLimiter.SetDomainDelay(domain, delay)
	if !sleep(ctx, delay) {
		return outcomeError, ctx.Err()
	}
	if err := c.rateLimiter.Wait(ctx, rawURL); err != nil {
		return outcomeError, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := DownloadWithRetry(ctx, c.downloader, c.retryPolicy, c.config.RetryAttempts, rawURL)
	if err != nil {
		return outcomeDownloadFailed, err
	}

	if resp.IsSentinel() {
		slog.Info("Skipping URL", "worker_id", id, "url", rawURL, "status", resp.Status, "error", resp.Error)
		return outcomeSkipped, nil
	}

	links, err := c.extractor.Extract(ctx, rawURL, resp)
	if err != nil {
		if errors.Is(err, filter.ErrMalformedURL) {
			return outcomeMalformed, err
		}
		return outcomeError, err
	}

	for _, link := range links {
		if err := c.frontier.AddURL(link); err != nil {
			slog.Error("Worker failed to add URL", "worker_id", id, "url", link, "error", err)
		}
	}

	if err := c.frontier.MarkComplete(rawURL); err != nil {
		return outcomeError, fmt.Errorf("failed to mark complete: %w", err)
	}

	slog.Info("Worker processed URL", "worker_id", id, "url", rawURL, "status", resp.Status, "links", len(links))
	return outcomeCompleted, nil
}

// sleep pauses for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
