package crawler

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

// scriptedDownloader returns errs[i] on attempt i and then succeeds.
type scriptedDownloader struct {
	mu       sync.Mutex
	errs     []error
	attempts int
}

func (d *scriptedDownloader) Download(_ context.Context, url string) (*Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.attempts <= len(d.errs) {
		return nil, d.errs[d.attempts-1]
	}
	return &Response{Status: 200, URL: url, Content: []byte("<html></html>")}, nil
}

func refused() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func repeatErr(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

func TestDownloadWithRetrySucceedsOnLastAttempt(t *testing.T) {
	d := &scriptedDownloader{errs: repeatErr(refused(), 5)}
	retries := 0
	policy := NewRetryPolicy(RetryConfig{Attempts: 6, Delay: time.Millisecond}, func() { retries++ })

	resp, err := DownloadWithRetry(context.Background(), d, policy, 6, "https://ics.uci.edu/")
	if err != nil {
		t.Fatalf("DownloadWithRetry failed: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, expected 200", resp.Status)
	}
	if d.attempts != 6 {
		t.Errorf("Attempts = %d, expected 6", d.attempts)
	}
	if retries != 5 {
		t.Errorf("Retries scheduled = %d, expected 5", retries)
	}
}

func TestDownloadWithRetryExhausted(t *testing.T) {
	d := &scriptedDownloader{errs: repeatErr(refused(), 10)}
	policy := NewRetryPolicy(RetryConfig{Attempts: 6, Delay: time.Millisecond}, nil)

	_, err := DownloadWithRetry(context.Background(), d, policy, 6, "https://ics.uci.edu/")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Errorf("Expected last failure to be wrapped, got %v", err)
	}
	if d.attempts != 6 {
		t.Errorf("Attempts = %d, expected 6", d.attempts)
	}
}

func TestDownloadWithRetryNonTransient(t *testing.T) {
	permanent := errors.New("unsupported protocol scheme")
	d := &scriptedDownloader{errs: repeatErr(permanent, 10)}
	policy := NewRetryPolicy(RetryConfig{Attempts: 6, Delay: time.Millisecond}, nil)

	_, err := DownloadWithRetry(context.Background(), d, policy, 6, "https://ics.uci.edu/")
	if !errors.Is(err, permanent) {
		t.Fatalf("Expected the original error, got %v", err)
	}
	if errors.Is(err, ErrRetriesExhausted) {
		t.Error("Non-transient failure should not report exhausted retries")
	}
	if d.attempts != 1 {
		t.Errorf("Attempts = %d, expected 1", d.attempts)
	}
}

func TestDownloadWithRetryWaitsBetweenAttempts(t *testing.T) {
	d := &scriptedDownloader{errs: repeatErr(refused(), 2)}
	policy := NewRetryPolicy(RetryConfig{Attempts: 3, Delay: 30 * time.Millisecond}, nil)

	start := time.Now()
	if _, err := DownloadWithRetry(context.Background(), d, policy, 3, "https://ics.uci.edu/"); err != nil {
		t.Fatalf("DownloadWithRetry failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("Expected two 30ms delays, elapsed %v", elapsed)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"Nil", nil, false},
		{"DNS", &net.DNSError{Err: "no such host", Name: "nowhere.uci.edu"}, true},
		{"Dial refused", refused(), true},
		{"Bare reset", syscall.ECONNRESET, true},
		{"Deadline", context.DeadlineExceeded, true},
		{"IO deadline", os.ErrDeadlineExceeded, true},
		{"Canceled", context.Canceled, false},
		{"Plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("IsTransient(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}
