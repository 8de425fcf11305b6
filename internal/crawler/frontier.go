package crawler

import "sync"

// trackingFrontier counts URLs handed to workers and not yet released, so
// an empty queue only ends the crawl once no worker can still add to it.
type trackingFrontier struct {
	Frontier

	mu       sync.Mutex
	inFlight int
}

func newTrackingFrontier(f Frontier) *trackingFrontier {
	return &trackingFrontier{Frontier: f}
}

// claim returns the next URL to crawl. When the queue is empty, drained is
// true only if no other URL is in flight; otherwise the caller should wait
// and ask again. Every non-empty url must be paired with release.
func (t *trackingFrontier) claim() (url string, drained bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	url, ok, err := t.GetNextURL()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", t.inFlight == 0, nil
	}
	t.inFlight++
	return url, false, nil
}

// release marks a claimed URL as finished, whatever its outcome.
func (t *trackingFrontier) release() {
	t.mu.Lock()
	t.inFlight--
	t.mu.Unlock()
}

func (t *trackingFrontier) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}
