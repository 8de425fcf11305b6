package crawler

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptrace"
	"time"
)

// HTTPClient handles HTTP requests with performance metrics
type HTTPClient struct {
	client          *http.Client
	userAgent       string
	maxContentBytes int64
}

// HTTPMetrics contains performance metrics for an HTTP request
type HTTPMetrics struct {
	TTFB         time.Duration // Time to First Byte
	DownloadTime time.Duration // Total download time
	DNSLookup    time.Duration // DNS lookup time
	TCPConnect   time.Duration // TCP connection time
	TLSHandshake time.Duration // TLS handshake time
}

// HTTPResponse is the raw result of Get.
type HTTPResponse struct {
	StatusCode  int
	Headers     http.Header
	Body        []byte
	ContentType string
	Metrics     HTTPMetrics
	FinalURL    string // After following redirects
}

// ClientOptions configures an HTTPClient.
type ClientOptions struct {
	UserAgent       string
	Timeout         time.Duration
	MaxRedirects    int
	MaxContentBytes int64
}

type redirectCounterKey struct{}

// NewHTTPClient creates a new HTTP client. Redirects beyond MaxRedirects are
// not followed; the last 3xx response is returned instead.
func NewHTTPClient(opts ClientOptions) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	maxRedirects := opts.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if counter, ok := req.Context().Value(redirectCounterKey{}).(*int); ok {
				*counter = len(via)
			}
			if len(via) > maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPClient{
		client:          client,
		userAgent:       opts.UserAgent,
		maxContentBytes: opts.MaxContentBytes,
	}
}

// Get performs an HTTP GET request and reads the whole body. It measures
// DNS lookup, TCP connect, TLS handshake, time to first byte and total
// download time.
func (h *HTTPClient) Get(ctx context.Context, url string) (*HTTPResponse, error) {
	req, err := h.newRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, metrics, err := h.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(h.limit(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.finish()

	return &HTTPResponse{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Metrics:     metrics.HTTPMetrics,
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// Download fetches url for the crawler. Conditions that mean "not a page
// worth reading" come back as sentinel statuses rather than errors; only
// network failures are errors.
func (h *HTTPClient) Download(ctx context.Context, url string) (*Response, error) {
	var redirects int
	ctx = context.WithValue(ctx, redirectCounterKey{}, &redirects)

	req, err := h.newRequest(ctx, url)
	if err != nil {
		return &Response{Status: StatusSkipped, Error: err.Error(), URL: url}, nil
	}

	resp, metrics, err := h.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &Response{
		Status:    resp.StatusCode,
		URL:       resp.Request.URL.String(),
		Redirects: redirects,
		Headers:   resp.Header,
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isHTMLContentType(ct) {
		result.Status = StatusNotHTML
		result.Error = "content type " + ct + " is not HTML"
		return result, nil
	}

	if h.maxContentBytes > 0 && resp.ContentLength > h.maxContentBytes {
		result.Status = StatusTooLarge
		result.Error = fmt.Sprintf("content length %d exceeds %d bytes", resp.ContentLength, h.maxContentBytes)
		return result, nil
	}

	body, err := io.ReadAll(h.limit(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	metrics.finish()

	result.Content = body
	result.Metrics = metrics.HTTPMetrics
	if result.Status != http.StatusOK {
		result.Error = fmt.Sprintf("%d %s", result.Status, http.StatusText(result.Status))
	}
	return result, nil
}

// Close closes the HTTP client
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

func (h *HTTPClient) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return req, nil
}

// limit caps body reads one byte past the content limit so oversize
// bodies stay detectable.
func (h *HTTPClient) limit(r io.Reader) io.Reader {
	if h.maxContentBytes <= 0 {
		return r
	}
	return io.LimitReader(r, h.maxContentBytes+1)
}

type requestTimer struct {
	HTTPMetrics
	start time.Time
}

func (t *requestTimer) finish() {
	t.DownloadTime = time.Since(t.start)
}

func (h *HTTPClient) do(req *http.Request) (*http.Response, *requestTimer, error) {
	timer := &requestTimer{}
	var dnsStart, connectStart, tlsStart time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			timer.DNSLookup = time.Since(dnsStart)
		},
		ConnectStart: func(string, string) {
			connectStart = time.Now()
		},
		ConnectDone: func(string, string, error) {
			timer.TCPConnect = time.Since(connectStart)
		},
		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			timer.TLSHandshake = time.Since(tlsStart)
		},
		GotFirstResponseByte: func() {
			timer.TTFB = time.Since(timer.start)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	timer.start = time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, timer, nil
}

func isHTMLContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
