// Package filter decides which URLs are inside the crawl scope and which look
// like crawler traps.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// MaxURLLength is the longest URL the crawler will accept.
const MaxURLLength = 200

// ErrMalformedURL is returned when a URL cannot be parsed at all.
var ErrMalformedURL = errors.New("malformed URL")

var (
	defaultQueryTraps = []string{
		"share=", "replytocom", "ical", "tribe-bar-date", "eventdisplay",
		"do=", "rev=", "version=", "action=login",
	}

	defaultPathTraps = []string{
		"/events/", "/event/", "/calendar", "/day/", "/week/", "/month/",
		"/list/", "/pix/", "/gallery", "/photos/", "/img_",
	}

	numberedAssetPattern = regexp.MustCompile(`(?i)(slideshow|datasheet)s?[-_/]?\d+`)

	nonHTMLExtension = regexp.MustCompile(`\.(css|js|bmp|gif|jpe?g|ico` +
		`|png|tiff?|mid|mp2|mp3|mp4|mpg|webm|flv` +
		`|wav|avi|mov|mpeg|ram|m4v|mkv|ogg|ogv|pdf` +
		`|ps|eps|tex|ppt|pptx|ppsx|odp|doc|docx|xls|xlsx|names` +
		`|data|dat|exe|bz2|tar|msi|bin|7z|psd|dmg|iso|img|apk|war` +
		`|epub|dll|cnf|tgz|sha1|bib|sql` +
		`|thmx|mso|arff|rtf|jar|csv` +
		`|rm|smil|wmv|swf|wma|zip|rar|gz)$`)
)

// Rules holds the scope and trap settings a Validator checks against.
type Rules struct {
	AllowedSuffixes []string // host must end with one of these
	ExcludedHosts   []string // exact hosts rejected even when a suffix matches
	QueryTraps      []string // substrings that disqualify a query string
	PathTraps       []string // substrings that disqualify a lower-cased path
}

// Validator is a stateless URL predicate; it is safe for concurrent use.
type Validator struct {
	allowed    []string
	excluded   map[string]struct{}
	queryTraps []string
	pathTraps  []string
}

// NewValidator builds a validator. Empty trap lists fall back to the
// built-in trap sets.
func NewValidator(rules Rules) *Validator {
	v := &Validator{
		excluded:   make(map[string]struct{}, len(rules.ExcludedHosts)),
		queryTraps: rules.QueryTraps,
		pathTraps:  rules.PathTraps,
	}
	for _, s := range rules.AllowedSuffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			v.allowed = append(v.allowed, s)
		}
	}
	for _, h := range rules.ExcludedHosts {
		v.excluded[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	if len(v.queryTraps) == 0 {
		v.queryTraps = defaultQueryTraps
	}
	if len(v.pathTraps) == 0 {
		v.pathTraps = defaultPathTraps
	}
	return v
}

// IsValid reports whether rawURL should be crawled. It returns an error
// wrapping ErrMalformedURL when rawURL cannot be parsed; callers decide how
// to contain that.
func (v *Validator) IsValid(rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	if !v.InScope(parsed) {
		return false, nil
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, nil
	}

	if len(rawURL) > MaxURLLength {
		return false, nil
	}

	query := strings.ToLower(parsed.RawQuery)
	for _, trap := range v.queryTraps {
		if strings.Contains(query, trap) {
			return false, nil
		}
	}

	path := strings.ToLower(parsed.Path)
	for _, trap := range v.pathTraps {
		if strings.Contains(path, trap) {
			return false, nil
		}
	}

	if HasRepeatedSegment(parsed.Path) {
		return false, nil
	}

	if numberedAssetPattern.MatchString(parsed.Path) {
		return false, nil
	}

	return !nonHTMLExtension.MatchString(path), nil
}

// InScope reports whether the URL's host is on the allow-list and not excluded.
func (v *Validator) InScope(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if _, excluded := v.excluded[host]; excluded {
		return false
	}
	for _, suffix := range v.allowed {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// HasRepeatedSegment reports whether any non-empty path segment occurs twice,
// the signature of self-referencing relative links (/a/b/a/b/...).
func HasRepeatedSegment(path string) bool {
	seen := make(map[string]struct{})
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if _, dup := seen[segment]; dup {
			return true
		}
		seen[segment] = struct{}{}
	}
	return false
}
