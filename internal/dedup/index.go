package dedup

import "sync"

// DefaultMaxDistance is the largest Hamming distance treated as a near-duplicate.
const DefaultMaxDistance = 1

// Index remembers the fingerprint of every key it has checked. It grows for
// the lifetime of the process; there is no eviction.
type Index struct {
	mu          sync.Mutex
	entries     map[string]Fingerprint
	fingerprint func(string) Fingerprint
	maxDistance int
}

// Option configures an Index.
type Option func(*Index)

// WithFingerprinter replaces the simhash function, mainly for tests.
func WithFingerprinter(fn func(string) Fingerprint) Option {
	return func(idx *Index) {
		idx.fingerprint = fn
	}
}

// WithMaxDistance sets the duplicate threshold.
func WithMaxDistance(d int) Option {
	return func(idx *Index) {
		idx.maxDistance = d
	}
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	idx := &Index{
		entries:     make(map[string]Fingerprint),
		fingerprint: Simhash,
		maxDistance: DefaultMaxDistance,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Check records key and reports whether it is a near-duplicate of any other
// key already recorded. The key is stored before comparison, so the first
// key in a family is kept and later close variants are flagged. A key is
// never compared with itself.
func (idx *Index) Check(key string) bool {
	fp := idx.fingerprint(key)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[key] = fp
	for other, otherFP := range idx.entries {
		if other == key {
			continue
		}
		if fp.Distance(otherFP) <= idx.maxDistance {
			return true
		}
	}
	return false
}

// Len returns the number of distinct keys recorded.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}
