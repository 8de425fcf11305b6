package crawler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx, "https://ics.uci.edu/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Second request to the same host should wait
	if err := limiter.Wait(ctx, "https://ics.uci.edu/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}

	// Different domain should not be rate limited
	start2 := time.Now()
	if err := limiter.Wait(ctx, "https://cs.uci.edu/page1"); err != nil {
		t.Errorf("Different domain request failed: %v", err)
	}
	if elapsed2 := time.Since(start2); elapsed2 > 20*time.Millisecond {
		t.Errorf("Different domain was rate limited, elapsed time: %v", elapsed2)
	}
}

func TestRateLimiterDomainDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	limiter.SetDomainDelay("stat.uci.edu", 200*time.Millisecond)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := limiter.Wait(ctx, "https://stat.uci.edu/page"); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("Crawl-delay not honored, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterZeroDelayIsUnlimited(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := limiter.Wait(ctx, "https://ics.uci.edu/page"); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay should not throttle, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterSetDomainDelayKeepsLimiter(t *testing.T) {
	limiter := NewRateLimiter(0)

	limiter.SetDomainDelay("ics.uci.edu", time.Second)
	first := limiter.getLimiter("ics.uci.edu")

	limiter.SetDomainDelay("ics.uci.edu", time.Second)
	if limiter.getLimiter("ics.uci.edu") != first {
		t.Error("Same delay should keep the existing limiter")
	}

	limiter.SetDomainDelay("ics.uci.edu", 2*time.Second)
	if limiter.getLimiter("ics.uci.edu") == first {
		t.Error("Different delay should replace the limiter")
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(500 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// First request to establish timing
	if err := limiter.Wait(ctx, "https://ics.uci.edu/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	cancel()

	err := limiter.Wait(ctx, "https://ics.uci.edu/page2")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterInvalidURL(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)

	if err := limiter.Wait(context.Background(), "http://[::1]:namedport"); err == nil {
		t.Errorf("Expected error for invalid URL, got nil")
	}
}
