package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryConfig bounds download retries.
type RetryConfig struct {
	Attempts int           // total attempts, including the first
	Delay    time.Duration // fixed pause between attempts
}

// NewRetryPolicy builds a policy that retries only transient network
// failures, with a fixed delay, and returns the last failure unwrapped.
// onRetry, when set, runs each time a retry is scheduled.
func NewRetryPolicy(cfg RetryConfig, onRetry func()) retrypolicy.RetryPolicy[*Response] {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	return retrypolicy.NewBuilder[*Response]().
		HandleIf(func(_ *Response, err error) bool {
			return IsTransient(err)
		}).
		WithMaxAttempts(attempts).
		WithDelay(cfg.Delay).
		OnRetryScheduled(func(failsafe.ExecutionScheduledEvent[*Response]) {
			if onRetry != nil {
				onRetry()
			}
		}).
		ReturnLastFailure().
		Build()
}

// DownloadWithRetry downloads rawURL through policy. Each failed attempt is
// logged with its number. When every attempt failed transiently the error
// wraps ErrRetriesExhausted as well as the last failure.
func DownloadWithRetry(ctx context.Context, d Downloader, policy retrypolicy.RetryPolicy[*Response], maxAttempts int, rawURL string) (*Response, error) {
	attempt := 0
	resp, err := failsafe.With[*Response](policy).WithContext(ctx).Get(func() (*Response, error) {
		attempt++
		resp, err := d.Download(ctx, rawURL)
		if err != nil {
			slog.Warn("Download attempt failed",
				"url", rawURL,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"transient", IsTransient(err),
				"error", err)
		}
		return resp, err
	})
	if err != nil {
		if IsTransient(err) && attempt >= maxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, rawURL, attempt, err)
		}
		return nil, err
	}
	return resp, nil
}
