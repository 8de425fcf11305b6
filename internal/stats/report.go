package stats

import (
	"fmt"
	"io"
)

// ReportTopWords is the number of words listed in a report.
const ReportTopWords = 50

// WriteReport prints the crawl summary: unique page count, longest page,
// most common words and per-subdomain page counts.
func WriteReport(w io.Writer, s Snapshot, topWords int) error {
	if _, err := fmt.Fprintf(w, "Number of unique pages found: %d\n", len(s.UniquePages)); err != nil {
		return err
	}

	var err error
	if url, tokens, ok := s.LongestPage(); ok {
		_, err = fmt.Fprintf(w, "Longest page URL: %s, Length: %d\n", url, tokens)
	} else {
		_, err = fmt.Fprintln(w, "Longest page URL: none")
	}
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%d most common words:\n", topWords); err != nil {
		return err
	}
	for _, wc := range s.MostCommon(topWords) {
		if _, err := fmt.Fprintf(w, "%s: %d\n", wc.Word, wc.Count); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "Subdomains count:"); err != nil {
		return err
	}
	for _, host := range s.SortedSubdomains() {
		if _, err := fmt.Fprintf(w, "%s: %d\n", host, s.Subdomains[host]); err != nil {
			return err
		}
	}
	return nil
}
