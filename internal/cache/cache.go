// Package cache stores SearchResults on disk under a one-file-per-entry
// layout keyed by an anonymized query fingerprint, with a SQLite recency
// index driving LRU eviction and a cron-scheduled retention sweep for TTL
// expiry.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/icelocator/locator-core/internal/cache/index"
	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
)

const entryExt = ".entry"

// ErrMiss is returned by callers checking for a cache hit; Get itself just
// returns (nil, false), this exists for callers that prefer an error form.
var ErrMiss = errors.New("cache: entry not found or expired")

// Cache is a file-backed, LRU-evicting, TTL-expiring store of SearchResults.
type Cache struct {
	mu         sync.Mutex
	dir        string
	ttl        time.Duration
	maxEntries int
	idx        *index.Index
	log        *slog.Logger
}

// Open prepares the cache directory and its recency index per cfg. If
// cfg.Enabled is false, Open still succeeds but the returned Cache treats
// every Get as a miss and every Put as a no-op, so callers never need an
// "is caching on" branch of their own.
func Open(cfg config.CacheConfig, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		dir:        cfg.Directory,
		ttl:        time.Duration(cfg.TTLSeconds) * time.Second,
		maxEntries: cfg.MaxEntries,
		log:        log.With("component", "cache"),
	}
	if !cfg.Enabled {
		return c, nil
	}
	if c.dir == "" {
		c.dir = "cache"
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory %s: %w", c.dir, err)
	}

	idx, err := index.Open(filepath.Join(c.dir, "index.sqlite"))
	if err != nil {
		return nil, err
	}
	c.idx = idx
	return c, nil
}

// Close releases the index's database handle. Safe to call on a disabled cache.
func (c *Cache) Close() error {
	if c.idx == nil {
		return nil
	}
	return c.idx.Close()
}

func (c *Cache) enabled() bool {
	return c.idx != nil
}

func (c *Cache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+entryExt)
}

// Get returns the cached result for fingerprint, or (zero, false) on a
// miss or an expired entry. An expired entry is removed as a side effect.
func (c *Cache) Get(fingerprint string) (model.SearchResult, bool) {
	if !c.enabled() {
		return model.SearchResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		return model.SearchResult{}, false
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn("cache entry unreadable, evicting", "fingerprint", fingerprint, "error", err)
		c.removeLocked(fingerprint)
		return model.SearchResult{}, false
	}

	if entry.Expired(time.Now()) {
		c.removeLocked(fingerprint)
		return model.SearchResult{}, false
	}

	if err := c.idx.Touch(fingerprint, time.Now()); err != nil {
		c.log.Warn("cache index touch failed", "fingerprint", fingerprint, "error", err)
	}
	return entry.Result, true
}

// Put stores result under fingerprint with the configured TTL, evicting the
// least-recently-used entries first if this write would exceed MaxEntries.
func (c *Cache) Put(fingerprint string, result model.SearchResult) error {
	if !c.enabled() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := model.CacheEntry{
		Fingerprint: fingerprint,
		CreatedAt:   now,
		TTLSeconds:  int(c.ttl.Seconds()),
		Result:      result,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	if err := os.WriteFile(c.path(fingerprint), data, 0o644); err != nil {
		return fmt.Errorf("cache: write entry: %w", err)
	}
	if err := c.idx.Touch(fingerprint, now); err != nil {
		return fmt.Errorf("cache: index touch: %w", err)
	}

	if c.maxEntries > 0 {
		count, err := c.idx.Count()
		if err != nil {
			return err
		}
		if over := count - c.maxEntries; over > 0 {
			c.evictLocked(over)
		}
	}
	return nil
}

// Purge removes every entry unconditionally, used by the cache-purge CLI
// subcommand and by tests wanting a clean slate.
func (c *Cache) Purge() error {
	if !c.enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("cache: read directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != entryExt {
			continue
		}
		fp := e.Name()[:len(e.Name())-len(entryExt)]
		c.removeLocked(fp)
	}
	return nil
}

// PruneExpired removes every entry whose TTL has elapsed. It is the unit of
// work the retention scheduler runs on a cron cadence. Candidates come from
// the index's created_at bookkeeping rather than a full directory scan;
// each candidate's entry file is still read and checked against its own
// recorded TTL, since entries written under an earlier ttl_seconds setting
// may disagree with the current cutoff.
func (c *Cache) PruneExpired() (int, error) {
	if !c.enabled() || c.ttl == 0 {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	candidates, err := c.idx.ExpiredBefore(now.Add(-c.ttl))
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, fp := range candidates {
		data, err := os.ReadFile(c.path(fp))
		if err != nil {
			// Entry file already gone; drop the stale index row.
			c.removeLocked(fp)
			pruned++
			continue
		}
		var entry model.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.Expired(now) {
			c.removeLocked(fp)
			pruned++
		}
	}
	return pruned, nil
}

func (c *Cache) evictLocked(count int) {
	victims, err := c.idx.LeastRecentlyUsed(count)
	if err != nil {
		c.log.Warn("cache eviction lookup failed", "error", err)
		return
	}
	for _, fp := range victims {
		c.removeLocked(fp)
	}
}

func (c *Cache) removeLocked(fingerprint string) {
	if err := os.Remove(c.path(fingerprint)); err != nil && !os.IsNotExist(err) {
		c.log.Warn("cache entry removal failed", "fingerprint", fingerprint, "error", err)
	}
	if err := c.idx.Forget(fingerprint); err != nil {
		c.log.Warn("cache index forget failed", "fingerprint", fingerprint, "error", err)
	}
}

// Stats summarizes current cache occupancy for health reporting.
type Stats struct {
	Enabled    bool
	EntryCount int
	MaxEntries int
}

// Stats reports current occupancy. Errors reading the index are logged and
// result in a zero EntryCount rather than a returned error, since this is
// an observability path and should never itself fail a health check.
func (c *Cache) Stats() Stats {
	s := Stats{Enabled: c.enabled(), MaxEntries: c.maxEntries}
	if !c.enabled() {
		return s
	}
	n, err := c.idx.Count()
	if err != nil {
		c.log.Warn("cache stats count failed", "error", err)
		return s
	}
	s.EntryCount = n
	return s
}
