// Package storage provides the SQLite-backed crawl frontier and the
// persisted page statistics used for reports and resumed crawls.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// URL lifecycle states.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// QueueStatus counts frontier rows per state.
type QueueStatus struct {
	Queued     int
	Processing int
	Completed  int
}

// SQLiteStorage is a persistent, process-safe crawl frontier.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// AddURL enqueues rawURL with its fragment removed. A URL that was ever
// added before, in any state, is ignored.
func (s *SQLiteStorage) AddURL(rawURL string) error {
	normalized, _, _ := strings.Cut(rawURL, "#")
	if normalized == "" {
		return nil
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO urls (url, status, added_at)
		VALUES (?, 'queued', ?)
	`, normalized, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert URL %s: %w", normalized, err)
	}
	return nil
}

// GetNextURL atomically takes the oldest queued URL and marks it processing.
// ok is false when nothing is queued.
func (s *SQLiteStorage) GetNextURL() (string, bool, error) {
	var url string

	err := s.db.QueryRow(`
		UPDATE urls
		SET status = 'processing', processing_started_at = ?
		WHERE id = (
			SELECT id FROM urls
			WHERE status = 'queued'
			ORDER BY id ASC
			LIMIT 1
		) AND status = 'queued'
		RETURNING url
	`, time.Now()).Scan(&url)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get next URL: %w", err)
	}

	return url, true, nil
}

// MarkComplete records that url finished its fetch cycle.
func (s *SQLiteStorage) MarkComplete(url string) error {
	_, err := s.db.Exec(`
		UPDATE urls SET status = 'completed', completed_at = ? WHERE url = ?
	`, time.Now(), url)
	if err != nil {
		return fmt.Errorf("failed to mark %s complete: %w", url, err)
	}
	return nil
}

// RequeueAbandoned returns URLs left in 'processing' by an earlier run to
// the queue. It must only be called before workers start.
func (s *SQLiteStorage) RequeueAbandoned() (int, error) {
	result, err := s.db.Exec(`
		UPDATE urls SET status = 'queued', processing_started_at = NULL
		WHERE status = 'processing'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue abandoned URLs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return int(affected), nil
}

// Status counts URLs per state.
func (s *SQLiteStorage) Status() (QueueStatus, error) {
	var qs QueueStatus

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM urls GROUP BY status`)
	if err != nil {
		return qs, fmt.Errorf("failed to query queue status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return qs, fmt.Errorf("failed to scan queue status: %w", err)
		}
		switch status {
		case StatusQueued:
			qs.Queued = count
		case StatusProcessing:
			qs.Processing = count
		case StatusCompleted:
			qs.Completed = count
		}
	}

	return qs, rows.Err()
}

// Reset discards the frontier, statistics and metadata.
func (s *SQLiteStorage) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"urls", "unique_pages", "page_tokens", "word_counts", "subdomains", "crawl_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// GetMeta retrieves a metadata value. A missing key yields "".
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta %s: %w", key, err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}
