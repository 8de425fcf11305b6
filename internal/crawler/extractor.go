package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/masahif/campuscrawl/internal/dedup"
	"github.com/masahif/campuscrawl/internal/filter"
	"github.com/masahif/campuscrawl/internal/monitoring"
	"github.com/masahif/campuscrawl/internal/parser"
	"github.com/masahif/campuscrawl/internal/stats"
)

// ExtractorConfig holds the content gates applied to well-texted pages.
type ExtractorConfig struct {
	MinTextRatio    float64
	MaxRedirects    int
	MaxContentBytes int64
}

// PageExtractor records page statistics and harvests next-candidate URLs.
type PageExtractor struct {
	cfg       ExtractorConfig
	validator *filter.Validator
	index     *dedup.Index
	stats     *stats.Aggregator
	metrics   *monitoring.Metrics

	mu      sync.Mutex
	visited map[string]struct{}
}

// NewPageExtractor wires an extractor to the shared validator, duplicate
// index and statistics.
func NewPageExtractor(cfg ExtractorConfig, validator *filter.Validator, index *dedup.Index, agg *stats.Aggregator, metrics *monitoring.Metrics) *PageExtractor {
	return &PageExtractor{
		cfg:       cfg,
		validator: validator,
		index:     index,
		stats:     agg,
		metrics:   metrics,
		visited:   make(map[string]struct{}),
	}
}

// Extract processes the page fetched from pageURL. It returns the
// query-stripped absolute URLs worth enqueueing. A URL that cannot be parsed
// returns an error wrapping filter.ErrMalformedURL and a cancelled ctx
// returns ctx.Err(); either aborts the whole page, and its statistics are
// not recorded so a later retry counts them once.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string, resp *Response) ([]string, error) {
	finalURL := resp.URL
	if finalURL == "" {
		finalURL = pageURL
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: final URL %q: %v", filter.ErrMalformedURL, finalURL, err)
	}
	if !e.validator.InScope(base) {
		slog.Debug("Final URL out of scope", "url", pageURL, "final_url", finalURL)
		return nil, nil
	}

	if resp.Status != http.StatusOK {
		slog.Info("Page not extracted", "url", pageURL, "status", resp.Status, "error", resp.Error)
		return nil, nil
	}
	if len(resp.Content) == 0 {
		slog.Debug("Empty page", "url", pageURL)
		return nil, nil
	}

	doc, err := parser.Parse(resp.Content)
	if err != nil {
		slog.Warn("Failed to parse page", "url", pageURL, "error", err)
		return nil, nil
	}

	ratio := float64(doc.TextLength) / float64(len(resp.Content))
	if ratio > e.cfg.MinTextRatio && !e.passesContentGates(pageURL, finalURL, resp) {
		return nil, e.record(pageURL, doc)
	}

	links, err := e.harvest(ctx, base, doc.Links)
	if err != nil {
		return nil, err
	}
	if err := e.record(pageURL, doc); err != nil {
		return nil, err
	}
	return links, nil
}

// record updates the shared statistics for one parsed page.
func (e *PageExtractor) record(pageURL string, doc *parser.Document) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", filter.ErrMalformedURL, pageURL, err)
	}
	u.Fragment = ""
	u.RawFragment = ""

	e.stats.RecordPage(u.String(), stats.Tokenize(doc.Text))
	e.stats.RecordSubdomain(u.Hostname())
	return nil
}

// passesContentGates applies the redirect, revisit and size checks. A false
// result means the page yields no links.
func (e *PageExtractor) passesContentGates(pageURL, finalURL string, resp *Response) bool {
	if resp.Redirects > e.cfg.MaxRedirects {
		slog.Info("Redirect chain too long", "url", pageURL, "redirects", resp.Redirects)
		return false
	}

	e.mu.Lock()
	if finalURL != pageURL {
		if _, seen := e.visited[finalURL]; seen {
			e.mu.Unlock()
			slog.Debug("Redirect target already visited", "url", pageURL, "final_url", finalURL)
			return false
		}
		e.visited[finalURL] = struct{}{}
	}
	e.visited[pageURL] = struct{}{}
	e.mu.Unlock()

	size := int64(len(resp.Content))
	if size == 0 || (e.cfg.MaxContentBytes > 0 && size > e.cfg.MaxContentBytes) {
		slog.Info("Content size out of range", "url", pageURL, "bytes", size)
		return false
	}
	return true
}

// harvest resolves, validates and deduplicates raw hrefs.
func (e *PageExtractor) harvest(ctx context.Context, base *url.URL, hrefs []string) ([]string, error) {
	var links []string
	for _, href := range hrefs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ref, err := url.Parse(href)
		if err != nil {
			e.metrics.IncLinks("malformed")
			return nil, fmt.Errorf("%w: href %q: %v", filter.ErrMalformedURL, href, err)
		}
		ref.Fragment = ""
		ref.RawFragment = ""
		abs := base.ResolveReference(ref)

		ok, err := e.validator.IsValid(abs.String())
		if err != nil {
			e.metrics.IncLinks("malformed")
			return nil, err
		}
		if !ok {
			e.metrics.IncLinks("invalid")
			continue
		}

		if e.index.Check(abs.Path + "?" + abs.RawQuery) {
			e.metrics.IncLinks("near_duplicate")
			continue
		}

		abs.RawQuery = ""
		abs.ForceQuery = false
		links = append(links, abs.String())
		e.metrics.IncLinks("accepted")
	}
	return links, nil
}
