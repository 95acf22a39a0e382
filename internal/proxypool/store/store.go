// Package store persists the Proxy Pool Manager's reputation and
// quarantine roster across process restarts using modernc.org/sqlite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/icelocator/locator-core/pkg/model"
)

// Store is a pure-Go SQLite-backed roster of proxy handles.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS proxy_handles (
	id TEXT PRIMARY KEY,
	endpoint TEXT NOT NULL,
	username TEXT,
	password TEXT,
	kind TEXT NOT NULL,
	region TEXT,
	reputation REAL NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	average_latency_ms INTEGER NOT NULL DEFAULT 0,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	last_used_at INTEGER NOT NULL DEFAULT 0,
	requests_since_rotation INTEGER NOT NULL DEFAULT 0,
	quarantined INTEGER NOT NULL DEFAULT 0,
	quarantined_at INTEGER NOT NULL DEFAULT 0,
	quarantine_duration_ms INTEGER NOT NULL DEFAULT 0
);`

// Open creates or opens the roster database at path (use ":memory:" for an
// ephemeral, test-only store).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Upsert persists the current state of a handle.
func (s *Store) Upsert(h *model.ProxyHandle) error {
	_, err := s.db.Exec(`
		INSERT INTO proxy_handles (
			id, endpoint, username, password, kind, region, reputation,
			success_count, failure_count, average_latency_ms,
			consecutive_failures, last_used_at, requests_since_rotation,
			quarantined, quarantined_at, quarantine_duration_ms
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			endpoint=excluded.endpoint, username=excluded.username,
			password=excluded.password, kind=excluded.kind, region=excluded.region,
			reputation=excluded.reputation, success_count=excluded.success_count,
			failure_count=excluded.failure_count,
			average_latency_ms=excluded.average_latency_ms,
			consecutive_failures=excluded.consecutive_failures,
			last_used_at=excluded.last_used_at,
			requests_since_rotation=excluded.requests_since_rotation,
			quarantined=excluded.quarantined, quarantined_at=excluded.quarantined_at,
			quarantine_duration_ms=excluded.quarantine_duration_ms
	`,
		h.ID, h.Endpoint, h.Username, h.Password, string(h.Kind), h.Region, h.Reputation,
		h.SuccessCount, h.FailureCount, h.AverageLatency.Milliseconds(),
		h.ConsecutiveFailures, unixMillis(h.LastUsedAt), h.RequestsSinceRotation,
		boolToInt(h.Quarantined), unixMillis(h.QuarantinedAt), h.QuarantineDuration.Milliseconds(),
	)
	return err
}

// LoadAll returns every persisted handle, used to seed the pool on startup.
func (s *Store) LoadAll() ([]*model.ProxyHandle, error) {
	rows, err := s.db.Query(`SELECT id, endpoint, username, password, kind, region,
		reputation, success_count, failure_count, average_latency_ms,
		consecutive_failures, last_used_at, requests_since_rotation,
		quarantined, quarantined_at, quarantine_duration_ms FROM proxy_handles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ProxyHandle
	for rows.Next() {
		var (
			h                              model.ProxyHandle
			kind                           string
			latencyMs, quarantineDurMs     int64
			lastUsedMs, quarantinedAtMs    int64
			quarantinedInt                 int
		)
		if err := rows.Scan(&h.ID, &h.Endpoint, &h.Username, &h.Password, &kind, &h.Region,
			&h.Reputation, &h.SuccessCount, &h.FailureCount, &latencyMs,
			&h.ConsecutiveFailures, &lastUsedMs, &h.RequestsSinceRotation,
			&quarantinedInt, &quarantinedAtMs, &quarantineDurMs); err != nil {
			return nil, err
		}
		h.Kind = model.ProxyKind(kind)
		h.AverageLatency = time.Duration(latencyMs) * time.Millisecond
		h.LastUsedAt = fromUnixMillis(lastUsedMs)
		h.Quarantined = quarantinedInt != 0
		h.QuarantinedAt = fromUnixMillis(quarantinedAtMs)
		h.QuarantineDuration = time.Duration(quarantineDurMs) * time.Millisecond
		out = append(out, &h)
	}
	return out, rows.Err()
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
