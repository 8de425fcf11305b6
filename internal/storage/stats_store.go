package storage

import (
	"database/sql"
	"fmt"

	"github.com/masahif/campuscrawl/internal/stats"
)

// SaveStats replaces the persisted page statistics with snap.
func (s *SQLiteStorage) SaveStats(snap stats.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"unique_pages", "page_tokens", "word_counts", "subdomains"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertAll(tx, "INSERT INTO unique_pages (url) VALUES (?)", len(snap.UniquePages), func(i int) []any {
		return []any{snap.UniquePages[i]}
	}); err != nil {
		return err
	}
	if err := insertMap(tx, "INSERT INTO page_tokens (url, tokens) VALUES (?, ?)", snap.PageTokens); err != nil {
		return err
	}
	if err := insertMap(tx, "INSERT INTO word_counts (word, count) VALUES (?, ?)", snap.Words); err != nil {
		return err
	}
	if err := insertMap(tx, "INSERT INTO subdomains (host, pages) VALUES (?, ?)", snap.Subdomains); err != nil {
		return err
	}

	return tx.Commit()
}

func insertAll(tx *sql.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	return nil
}

func insertMap(tx *sql.Tx, query string, m map[string]int) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for k, v := range m {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("failed to insert %s: %w", k, err)
		}
	}
	return nil
}

// LoadStats reads the persisted page statistics.
func (s *SQLiteStorage) LoadStats() (stats.Snapshot, error) {
	snap := stats.Snapshot{
		UniquePages: []string{},
		PageTokens:  make(map[string]int),
		Words:       make(map[string]int),
		Subdomains:  make(map[string]int),
	}

	rows, err := s.db.Query("SELECT url FROM unique_pages ORDER BY url")
	if err != nil {
		return snap, fmt.Errorf("failed to query unique pages: %w", err)
	}
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			rows.Close()
			return snap, fmt.Errorf("failed to scan unique page: %w", err)
		}
		snap.UniquePages = append(snap.UniquePages, url)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, err
	}

	for query, target := range map[string]map[string]int{
		"SELECT url, tokens FROM page_tokens": snap.PageTokens,
		"SELECT word, count FROM word_counts": snap.Words,
		"SELECT host, pages FROM subdomains":  snap.Subdomains,
	} {
		if err := s.loadCounts(query, target); err != nil {
			return snap, err
		}
	}

	return snap, nil
}

func (s *SQLiteStorage) loadCounts(query string, target map[string]int) error {
	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query %q: %w", query, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %q: %w", query, err)
		}
		target[key] = count
	}
	return rows.Err()
}
