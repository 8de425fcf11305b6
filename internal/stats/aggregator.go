// Package stats accumulates the crawl-wide page statistics the report is
// built from.
package stats

import (
	"maps"
	"sort"
	"strings"
	"sync"
)

// Snapshot is a point-in-time copy of the aggregator state.
type Snapshot struct {
	UniquePages []string       `json:"unique_pages"`
	PageTokens  map[string]int `json:"page_tokens"`
	Words       map[string]int `json:"words"`
	Subdomains  map[string]int `json:"subdomains"`
}

// WordCount is a histogram entry.
type WordCount struct {
	Word  string
	Count int
}

// Aggregator holds running totals updated by every worker.
type Aggregator struct {
	mu           sync.Mutex
	parentDomain string
	uniquePages  map[string]struct{}
	pageTokens   map[string]int
	words        map[string]int
	subdomains   map[string]int
}

// NewAggregator creates an empty aggregator. Only hosts equal to or under
// parentDomain are counted by RecordSubdomain.
func NewAggregator(parentDomain string) *Aggregator {
	return &Aggregator{
		parentDomain: strings.ToLower(strings.TrimSpace(parentDomain)),
		uniquePages:  make(map[string]struct{}),
		pageTokens:   make(map[string]int),
		words:        make(map[string]int),
		subdomains:   make(map[string]int),
	}
}

// RecordPage adds tokens to the word histogram, sets the token count of
// pageURL and marks it as a unique page. pageURL should already have its
// fragment removed.
func (a *Aggregator) RecordPage(pageURL string, tokens []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.uniquePages[pageURL] = struct{}{}
	a.pageTokens[pageURL] = len(tokens)
	for _, tok := range tokens {
		a.words[tok]++
	}
}

// RecordSubdomain increments the page counter for host when it falls under
// the parent domain. It reports whether the host was counted.
func (a *Aggregator) RecordSubdomain(host string) bool {
	host = strings.ToLower(host)
	if a.parentDomain == "" {
		return false
	}
	if host != a.parentDomain && !strings.HasSuffix(host, "."+a.parentDomain) {
		return false
	}

	a.mu.Lock()
	a.subdomains[host]++
	a.mu.Unlock()
	return true
}

// UniquePageCount returns the number of distinct pages recorded.
func (a *Aggregator) UniquePageCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.uniquePages)
}

// Snapshot returns a deep copy of the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	pages := make([]string, 0, len(a.uniquePages))
	for p := range a.uniquePages {
		pages = append(pages, p)
	}
	sort.Strings(pages)

	return Snapshot{
		UniquePages: pages,
		PageTokens:  maps.Clone(a.pageTokens),
		Words:       maps.Clone(a.words),
		Subdomains:  maps.Clone(a.subdomains),
	}
}

// Restore merges a previously saved snapshot into the aggregator, used when
// a crawl resumes.
func (a *Aggregator) Restore(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range s.UniquePages {
		a.uniquePages[p] = struct{}{}
	}
	for p, n := range s.PageTokens {
		a.pageTokens[p] = n
	}
	for w, n := range s.Words {
		a.words[w] += n
	}
	for h, n := range s.Subdomains {
		a.subdomains[h] += n
	}
}

// MostCommon returns the n most frequent words of a snapshot, ties broken
// alphabetically.
func (s Snapshot) MostCommon(n int) []WordCount {
	counts := make([]WordCount, 0, len(s.Words))
	for w, c := range s.Words {
		counts = append(counts, WordCount{Word: w, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})
	if n >= 0 && n < len(counts) {
		counts = counts[:n]
	}
	return counts
}

// LongestPage returns the page with the most tokens. ok is false when no
// pages were recorded.
func (s Snapshot) LongestPage() (url string, tokens int, ok bool) {
	for u, n := range s.PageTokens {
		if !ok || n > tokens || (n == tokens && u < url) {
			url, tokens, ok = u, n, true
		}
	}
	return url, tokens, ok
}

// SortedSubdomains returns subdomain names in alphabetical order.
func (s Snapshot) SortedSubdomains() []string {
	hosts := make([]string, 0, len(s.Subdomains))
	for h := range s.Subdomains {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}
