// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"strings"
	"time"
)

// Default seeds and domain scope for the campus crawl.
var (
	DefaultSeedURLs = []string{
		"https://www.ics.uci.edu",
		"https://www.cs.uci.edu",
		"https://www.informatics.uci.edu",
		"https://www.stat.uci.edu",
	}
	DefaultAllowedDomains  = []string{"ics.uci.edu", "cs.uci.edu", "informatics.uci.edu", "stat.uci.edu"}
	DefaultExcludedDomains = []string{"physics.uci.edu"}
)

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json or text
	File       string `mapstructure:"file" yaml:"file"`               // Optional log file path
	MaxSize    int64  `mapstructure:"max_size" yaml:"max_size"`       // Rotate after N megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Basic crawling parameters
	SeedURLs       []string      `mapstructure:"seed_urls" yaml:"seed_urls"`             // Starting URLs for crawling
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`         // Number of concurrent workers
	RequestDelay   time.Duration `mapstructure:"request_delay" yaml:"request_delay"`     // Pause after every completed page
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // HTTP request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header

	// Retry policy
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"` // Download attempts per URL
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`       // Fixed pause between attempts

	// Page extraction
	MaxRedirects    int     `mapstructure:"max_redirects" yaml:"max_redirects"`         // Redirect hops before a page yields no links
	MaxContentBytes int64   `mapstructure:"max_content_bytes" yaml:"max_content_bytes"` // Larger bodies yield no links
	MinTextRatio    float64 `mapstructure:"min_text_ratio" yaml:"min_text_ratio"`       // Ratio above which redirect/size checks apply

	// Domain scope
	ParentDomain    string   `mapstructure:"parent_domain" yaml:"parent_domain"`       // Subdomains of this host are counted
	AllowedDomains  []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`   // Host suffix allow-list
	ExcludedDomains []string `mapstructure:"excluded_domains" yaml:"excluded_domains"` // Exact hosts rejected despite the allow-list
	QueryTraps      []string `mapstructure:"query_traps" yaml:"query_traps"`           // Replace the built-in query trap keywords
	PathTraps       []string `mapstructure:"path_traps" yaml:"path_traps"`             // Replace the built-in path trap substrings

	// Database configuration
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file
	Restart      bool   `mapstructure:"restart" yaml:"restart"`             // Discard frontier and stats before crawling

	// Observability
	MetricsAddr string    `mapstructure:"metrics_addr" yaml:"metrics_addr"` // Prometheus listen address, empty disables
	Log         LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		SeedURLs:        append([]string(nil), DefaultSeedURLs...),
		Concurrency:     4,
		RequestDelay:    500 * time.Millisecond,
		RequestTimeout:  30 * time.Second,
		UserAgent:       "CampusCrawl/1.0",
		RetryAttempts:   6,
		RetryDelay:      10 * time.Second,
		MaxRedirects:    30,
		MaxContentBytes: 5_000_000,
		MinTextRatio:    0.1,
		ParentDomain:    "ics.uci.edu",
		AllowedDomains:  append([]string(nil), DefaultAllowedDomains...),
		ExcludedDomains: append([]string(nil), DefaultExcludedDomains...),
		DatabasePath:    "./campuscrawl.db",
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSize:    100,
			MaxBackups: 5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	// Note: SeedURLs are optional - crawler can resume from existing frontier

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RetryAttempts < 1 {
		return ErrInvalidRetryAttempts
	}

	if c.MaxContentBytes <= 0 {
		return ErrInvalidContentLimit
	}

	if c.MinTextRatio < 0 || c.MinTextRatio > 1 {
		return ErrInvalidTextRatio
	}

	if len(c.AllowedDomains) == 0 {
		return ErrNoAllowedDomains
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	if c.RequestDelay < 0 {
		c.RequestDelay = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.MaxRedirects < 0 {
		c.MaxRedirects = 0
	}

	c.ParentDomain = strings.ToLower(strings.TrimSpace(c.ParentDomain))

	return nil
}
