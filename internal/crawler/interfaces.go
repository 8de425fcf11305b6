package crawler

import (
	"context"

	"github.com/masahif/campuscrawl/internal/stats"
	"github.com/masahif/campuscrawl/internal/storage"
)

// Crawler defines the main crawling interface
type Crawler interface {
	Start(ctx context.Context, seedURLs []string) error
	Stop() error
	GetStats() CrawlStats
}

// Frontier is the shared work queue. AddURL must accept a given URL at most
// once over the crawl's lifetime; GetNextURL reports ok=false when nothing is
// queued.
type Frontier interface {
	GetNextURL() (url string, ok bool, err error)
	AddURL(url string) error
	MarkComplete(url string) error
}

// Downloader fetches a page. Network failures are returned as errors;
// everything else, including skip sentinels, as a Response.
type Downloader interface {
	Download(ctx context.Context, url string) (*Response, error)
}

// RobotsFetcher performs the raw GET used for robots.txt.
type RobotsFetcher interface {
	Get(ctx context.Context, url string) (*HTTPResponse, error)
}

// LinkExtractor turns a fetched page into next-candidate URLs.
type LinkExtractor interface {
	Extract(ctx context.Context, pageURL string, resp *Response) ([]string, error)
}

// queueStatusSource is implemented by frontiers that can report queue sizes.
type queueStatusSource interface {
	Status() (storage.QueueStatus, error)
}

// statsStore is implemented by frontiers that persist page statistics.
type statsStore interface {
	SaveStats(stats.Snapshot) error
}
