package stats

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"Lower-cases words", "Crawler CRAWLS", []string{"crawler", "crawls"}},
		{"Drops stopwords", "the crawler and the frontier", []string{"crawler", "frontier"}},
		{"Drops single letters", "a b research c", []string{"research"}},
		{"Drops alphanumeric runs", "cs161 room2 lab", []string{"lab"}},
		{"Splits on punctuation", "graph-theory,algorithms.", []string{"graph", "theory", "algorithms"}},
		{"Unicode letters", "Café naïve", []string{"café", "naïve"}},
		{"Empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Tokenize(%q) = %v, expected %v", tt.text, got, tt.expected)
			}
		})
	}
}

func repeat(word string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = word
	}
	return out
}

func TestAggregatorRecordPage(t *testing.T) {
	agg := NewAggregator("ics.uci.edu")

	agg.RecordPage("https://ics.uci.edu/a", repeat("crawl", 3))
	agg.RecordPage("https://ics.uci.edu/b", append(repeat("crawl", 4), "index"))

	snap := agg.Snapshot()
	if got := snap.Words["crawl"]; got != 7 {
		t.Errorf("Words[crawl] = %d, expected 7", got)
	}
	if got := snap.PageTokens["https://ics.uci.edu/b"]; got != 5 {
		t.Errorf("PageTokens[b] = %d, expected 5", got)
	}
	if got := len(snap.UniquePages); got != 2 {
		t.Errorf("UniquePages = %d, expected 2", got)
	}

	// Recording the same page again does not add a unique page
	agg.RecordPage("https://ics.uci.edu/a", nil)
	if got := agg.UniquePageCount(); got != 2 {
		t.Errorf("UniquePageCount() = %d, expected 2", got)
	}
}

func TestAggregatorRecordSubdomain(t *testing.T) {
	agg := NewAggregator("ics.uci.edu")

	tests := []struct {
		host    string
		counted bool
	}{
		{"vision.ics.uci.edu", true},
		{"VISION.ics.uci.edu", true},
		{"ics.uci.edu", true},
		{"cs.uci.edu", false},
		{"physics.uci.edu", false},
		{"notics.uci.edu", false},
	}
	for _, tt := range tests {
		if got := agg.RecordSubdomain(tt.host); got != tt.counted {
			t.Errorf("RecordSubdomain(%q) = %v, expected %v", tt.host, got, tt.counted)
		}
	}

	snap := agg.Snapshot()
	if got := snap.Subdomains["vision.ics.uci.edu"]; got != 2 {
		t.Errorf("Subdomains[vision] = %d, expected 2", got)
	}
	if len(snap.Subdomains) != 2 {
		t.Errorf("Subdomains = %v, expected 2 hosts", snap.Subdomains)
	}
}

func TestAggregatorSnapshotIsCopy(t *testing.T) {
	agg := NewAggregator("ics.uci.edu")
	agg.RecordPage("https://ics.uci.edu/", []string{"alpha"})

	snap := agg.Snapshot()
	snap.Words["alpha"] = 100

	if got := agg.Snapshot().Words["alpha"]; got != 1 {
		t.Errorf("Snapshot mutation leaked into aggregator: %d", got)
	}
}

func TestAggregatorRestore(t *testing.T) {
	agg := NewAggregator("ics.uci.edu")
	agg.Restore(Snapshot{
		UniquePages: []string{"https://ics.uci.edu/old"},
		PageTokens:  map[string]int{"https://ics.uci.edu/old": 2},
		Words:       map[string]int{"crawl": 3},
		Subdomains:  map[string]int{"ics.uci.edu": 1},
	})
	agg.RecordPage("https://ics.uci.edu/new", repeat("crawl", 4))
	agg.RecordSubdomain("ics.uci.edu")

	snap := agg.Snapshot()
	if got := snap.Words["crawl"]; got != 7 {
		t.Errorf("Words[crawl] = %d, expected 7", got)
	}
	if got := snap.Subdomains["ics.uci.edu"]; got != 2 {
		t.Errorf("Subdomains[ics.uci.edu] = %d, expected 2", got)
	}
	if got := len(snap.UniquePages); got != 2 {
		t.Errorf("UniquePages = %d, expected 2", got)
	}
}

func TestAggregatorConcurrent(t *testing.T) {
	agg := NewAggregator("ics.uci.edu")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				agg.RecordPage("https://ics.uci.edu/shared", []string{"word"})
				agg.RecordSubdomain("www.ics.uci.edu")
			}
		}()
	}
	wg.Wait()

	snap := agg.Snapshot()
	if got := snap.Words["word"]; got != 1000 {
		t.Errorf("Words[word] = %d, expected 1000", got)
	}
	if got := snap.Subdomains["www.ics.uci.edu"]; got != 1000 {
		t.Errorf("Subdomains = %d, expected 1000", got)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	snap := Snapshot{
		PageTokens: map[string]int{"b": 10, "a": 10, "c": 3},
		Words:      map[string]int{"zeta": 5, "alpha": 5, "beta": 9, "gamma": 1},
		Subdomains: map[string]int{"www.ics.uci.edu": 1, "vision.ics.uci.edu": 4},
	}

	url, tokens, ok := snap.LongestPage()
	if !ok || url != "a" || tokens != 10 {
		t.Errorf("LongestPage() = %q, %d, %v; expected a, 10, true", url, tokens, ok)
	}

	top := snap.MostCommon(3)
	expected := []WordCount{{"beta", 9}, {"alpha", 5}, {"zeta", 5}}
	if !reflect.DeepEqual(top, expected) {
		t.Errorf("MostCommon(3) = %v, expected %v", top, expected)
	}
	if got := len(snap.MostCommon(50)); got != 4 {
		t.Errorf("MostCommon(50) returned %d entries, expected 4", got)
	}

	hosts := snap.SortedSubdomains()
	if !reflect.DeepEqual(hosts, []string{"vision.ics.uci.edu", "www.ics.uci.edu"}) {
		t.Errorf("SortedSubdomains() = %v", hosts)
	}

	if _, _, ok := (Snapshot{}).LongestPage(); ok {
		t.Error("LongestPage() on empty snapshot should report !ok")
	}
}

func TestWriteReport(t *testing.T) {
	snap := Snapshot{
		UniquePages: []string{"https://ics.uci.edu/", "https://vision.ics.uci.edu/"},
		PageTokens:  map[string]int{"https://ics.uci.edu/": 12, "https://vision.ics.uci.edu/": 40},
		Words:       map[string]int{"research": 8, "vision": 3},
		Subdomains:  map[string]int{"vision.ics.uci.edu": 1, "ics.uci.edu": 1},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, snap, ReportTopWords); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Number of unique pages found: 2",
		"Longest page URL: https://vision.ics.uci.edu/, Length: 40",
		"50 most common words:",
		"research: 8\nvision: 3",
		"Subdomains count:\nics.uci.edu: 1\nvision.ics.uci.edu: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Report missing %q:\n%s", want, out)
		}
	}
}

// failingWriter accepts limit bytes and then fails every write.
type failingWriter struct {
	limit   int
	written int
}

var errWriteFailed = errors.New("write failed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, errWriteFailed
	}
	w.written += len(p)
	return len(p), nil
}

func TestWriteReportPropagatesWriteErrors(t *testing.T) {
	snap := Snapshot{
		UniquePages: []string{"https://ics.uci.edu/"},
		PageTokens:  map[string]int{"https://ics.uci.edu/": 3},
		Words:       map[string]int{"research": 3},
		Subdomains:  map[string]int{"ics.uci.edu": 1},
	}

	var full bytes.Buffer
	if err := WriteReport(&full, snap, ReportTopWords); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	// A limit at a newline index makes the line ending there the first failed write
	for limit := 0; limit < full.Len(); limit++ {
		if full.Bytes()[limit] != '\n' {
			continue
		}
		w := &failingWriter{limit: limit}
		if err := WriteReport(w, snap, ReportTopWords); !errors.Is(err, errWriteFailed) {
			t.Errorf("limit %d: WriteReport() error = %v, expected %v", limit, err, errWriteFailed)
		}
	}
}
