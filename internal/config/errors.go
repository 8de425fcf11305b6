package config

import "errors"

var (
	// ErrInvalidConcurrency is returned when concurrency is not greater than 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
	// ErrInvalidRetryAttempts is returned when retry_attempts is below 1
	ErrInvalidRetryAttempts = errors.New("retry_attempts must be at least 1")
	// ErrInvalidContentLimit is returned when max_content_bytes is not positive
	ErrInvalidContentLimit = errors.New("max_content_bytes must be greater than 0")
	// ErrNoAllowedDomains is returned when the domain allow-list is empty
	ErrNoAllowedDomains = errors.New("allowed_domains cannot be empty")
	// ErrInvalidTextRatio is returned when min_text_ratio is outside [0,1]
	ErrInvalidTextRatio = errors.New("min_text_ratio must be between 0 and 1")
)
