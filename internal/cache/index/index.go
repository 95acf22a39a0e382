// Package index persists cache access recency in SQLite so the cache can
// evict by least-recently-used without scanning the whole entry directory
// on every write.
package index

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_index (
	fingerprint  TEXT PRIMARY KEY,
	last_access  INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_index_last_access ON cache_index(last_access);
`

// Index tracks one row per cache entry on disk, keyed by fingerprint.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite-backed recency index at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("cache index: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache index: enable wal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache index: create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Touch records fingerprint as freshly created or accessed at now.
func (idx *Index) Touch(fingerprint string, now time.Time) error {
	_, err := idx.db.Exec(`
		INSERT INTO cache_index (fingerprint, last_access, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET last_access = excluded.last_access
	`, fingerprint, now.UnixNano(), now.Unix())
	if err != nil {
		return fmt.Errorf("cache index: touch %s: %w", fingerprint, err)
	}
	return nil
}

// Forget removes fingerprint from the index, e.g. after eviction or expiry.
func (idx *Index) Forget(fingerprint string) error {
	_, err := idx.db.Exec(`DELETE FROM cache_index WHERE fingerprint = ?`, fingerprint)
	if err != nil {
		return fmt.Errorf("cache index: forget %s: %w", fingerprint, err)
	}
	return nil
}

// Count returns the number of tracked entries.
func (idx *Index) Count() (int, error) {
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM cache_index`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache index: count: %w", err)
	}
	return n, nil
}

// LeastRecentlyUsed returns up to limit fingerprints ordered oldest-access
// first, for the cache to evict from when over capacity.
func (idx *Index) LeastRecentlyUsed(limit int) ([]string, error) {
	rows, err := idx.db.Query(`SELECT fingerprint FROM cache_index ORDER BY last_access ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("cache index: least recently used: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("cache index: scan: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// ExpiredBefore returns fingerprints created before cutoff, for TTL pruning
// when the entry itself has no independent TTL recorded in the index.
func (idx *Index) ExpiredBefore(cutoff time.Time) ([]string, error) {
	rows, err := idx.db.Query(`SELECT fingerprint FROM cache_index WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("cache index: expired before: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("cache index: scan: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
