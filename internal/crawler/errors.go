package crawler

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// ErrRetriesExhausted is returned when every download attempt failed with a
// transient error.
var ErrRetriesExhausted = errors.New("download retries exhausted")

// IsTransient reports whether err is a network-layer failure worth retrying:
// DNS errors, dial/read failures, refused or reset connections, and timeouts.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
