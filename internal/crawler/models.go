package crawler

import (
	"net/http"
	"time"
)

// Transport-local statuses. Anything in [StatusSentinelMin, StatusSentinelMax)
// means the URL was skipped without fetching a real page.
const (
	StatusSkipped  = 600 // request could not be built for the URL
	StatusNotHTML  = 601 // Content-Type present and not HTML
	StatusTooLarge = 602 // declared Content-Length above the content limit

	StatusSentinelMin = 600
	StatusSentinelMax = 700
)

// Response is the result of downloading one URL.
type Response struct {
	Status    int         // HTTP status, or a 6xx sentinel
	Error     string      // description when Status is not 200
	URL       string      // final URL after redirects
	Redirects int         // redirect hops taken
	Headers   http.Header // response headers, nil for sentinels
	Content   []byte      // raw body
	Metrics   HTTPMetrics
}

// IsSentinel reports whether the status is a transport-local skip signal.
func (r *Response) IsSentinel() bool {
	return r.Status >= StatusSentinelMin && r.Status < StatusSentinelMax
}

// CrawlStats represents crawling statistics
type CrawlStats struct {
	PagesCrawled int
	PagesSkipped int
	ErrorCount   int
	StartTime    time.Time
	Duration     time.Duration
}

// Page outcomes, used as log values and metric labels.
const (
	outcomeCompleted      = "completed"
	outcomeDenied         = "denied"
	outcomeSkipped        = "skipped"
	outcomeDownloadFailed = "download_failed"
	outcomeMalformed      = "malformed"
	outcomeError          = "error"
	outcomePanic          = "panic"
)
