package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestClient(timeout time.Duration) *HTTPClient {
	return NewHTTPClient(ClientOptions{
		UserAgent:       "Test-Crawler/1.0",
		Timeout:         timeout,
		MaxRedirects:    30,
		MaxContentBytes: 1024,
	})
}

func TestHTTPClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "Test-Crawler/1.0" {
			t.Errorf("Expected User-Agent 'Test-Crawler/1.0', got '%s'", ua)
		}

		w.Header().Set("Content-Type", "text/plain")

		// Add delay to test TTFB
		time.Sleep(50 * time.Millisecond)

		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer server.Close()

	client := newTestClient(30 * time.Second)
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL+"/robots.txt")
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.ContentType != "text/plain" {
		t.Errorf("Expected content type 'text/plain', got '%s'", resp.ContentType)
	}
	if resp.Metrics.TTFB < 50*time.Millisecond {
		t.Errorf("TTFB should be at least 50ms, got %v", resp.Metrics.TTFB)
	}
	if resp.Metrics.DownloadTime < resp.Metrics.TTFB {
		t.Errorf("Download time should be greater than TTFB")
	}
	if string(resp.Body) != "User-agent: *\nDisallow:\n" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestHTTPClientDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>Test Page</body></html>"))
		case "/missing":
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("<html><body>gone</body></html>"))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		case "/huge":
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set("Content-Length", strconv.Itoa(4096))
			_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
		case "/untyped":
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte("<p>no type</p>"))
		}
	}))
	defer server.Close()

	client := newTestClient(5 * time.Second)
	defer client.Close()

	tests := []struct {
		path        string
		status      int
		withContent bool
	}{
		{"/page", 200, true},
		{"/missing", 404, true},
		{"/image", StatusNotHTML, false},
		{"/huge", StatusTooLarge, false},
		{"/untyped", 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.Download(context.Background(), server.URL+tt.path)
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			if resp.Status != tt.status {
				t.Errorf("Status = %d, expected %d", resp.Status, tt.status)
			}
			if got := len(resp.Content) > 0; got != tt.withContent {
				t.Errorf("Has content = %v, expected %v", got, tt.withContent)
			}
			if resp.Status != 200 && resp.Error == "" {
				t.Error("Expected an error description for a non-200 status")
			}
			if resp.URL != server.URL+tt.path {
				t.Errorf("URL = %q", resp.URL)
			}
		})
	}
}

func TestHTTPClientDownloadCapsBody(t *testing.T) {
	// Chunked response: no Content-Length, so only the read limit applies
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		for i := 0; i < 8; i++ {
			_, _ = w.Write([]byte(strings.Repeat("y", 512)))
			w.(http.Flusher).Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(5 * time.Second)
	defer client.Close()

	resp, err := client.Download(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(resp.Content) != 1025 {
		t.Errorf("Read %d bytes, expected the limit plus one (1025)", len(resp.Content))
	}
}

func TestHTTPClientRedirect(t *testing.T) {
	redirectCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if redirectCount < 2 {
			redirectCount++
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("Final page"))
	}))
	defer server.Close()

	client := newTestClient(30 * time.Second)
	defer client.Close()

	resp, err := client.Download(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Failed to get URL: %v", err)
	}

	if resp.Status != 200 {
		t.Errorf("Expected status code 200, got %d", resp.Status)
	}
	if resp.URL != server.URL+"/final" {
		t.Errorf("Expected final URL '%s', got '%s'", server.URL+"/final", resp.URL)
	}
	if resp.Redirects != 2 {
		t.Errorf("Redirects = %d, expected 2", resp.Redirects)
	}
}

func TestHTTPClientRedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(ClientOptions{UserAgent: "Test-Crawler/1.0", Timeout: 5 * time.Second, MaxRedirects: 3})
	defer client.Close()

	resp, err := client.Download(context.Background(), server.URL+"/loop")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if resp.Status != http.StatusFound {
		t.Errorf("Status = %d, expected the last 302", resp.Status)
	}
	if resp.Redirects != 4 {
		t.Errorf("Redirects = %d, expected 4", resp.Redirects)
	}
}

func TestHTTPClientDownloadBadURL(t *testing.T) {
	client := newTestClient(5 * time.Second)
	defer client.Close()

	resp, err := client.Download(context.Background(), "http://[::1]:namedport")
	if err != nil {
		t.Fatalf("Download should report a sentinel, got error: %v", err)
	}
	if resp.Status != StatusSkipped {
		t.Errorf("Status = %d, expected %d", resp.Status, StatusSkipped)
	}
	if !resp.IsSentinel() {
		t.Error("Expected a sentinel response")
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(500 * time.Millisecond)
	defer client.Close()

	_, err := client.Download(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if !IsTransient(err) {
		t.Errorf("Timeout should be transient: %v", err)
	}
}

func TestHTTPClientConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := newTestClient(5 * time.Second)
	defer client.Close()

	_, err := client.Download(context.Background(), addr)
	if err == nil {
		t.Fatal("Expected connection error")
	}
	if !IsTransient(err) {
		t.Errorf("Connection refused should be transient: %v", err)
	}
}

func TestHTTPClientCancelled(t *testing.T) {
	client := newTestClient(5 * time.Second)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Download(ctx, "http://127.0.0.1:1/")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if IsTransient(err) {
		t.Error("Cancellation should not be transient")
	}
}
