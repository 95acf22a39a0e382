package cache

import (
	"path/filepath"
	"testing"

	"github.com/icelocator/locator-core/pkg/config"
	"github.com/icelocator/locator-core/pkg/model"
)

func testCache(t *testing.T, maxEntries int) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(config.CacheConfig{
		Enabled:    true,
		TTLSeconds: 3600,
		MaxEntries: maxEntries,
		Directory:  filepath.Join(dir, "cache"),
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleResult(name string) model.SearchResult {
	return model.SearchResult{
		Status: model.StatusFound,
		Records: []model.Record{
			{FullName: name, AlienNumber: "12345678"},
		},
	}
}

func TestCachePutThenGetHits(t *testing.T) {
	c := testCache(t, 0)

	result := sampleResult("Jose Garcia")
	if err := c.Put("fp1", result); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get("fp1")
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if len(got.Records) != 1 || got.Records[0].FullName != "Jose Garcia" {
		t.Errorf("unexpected cached result: %+v", got)
	}
}

func TestCacheGetMissOnUnknownKey(t *testing.T) {
	c := testCache(t, 0)
	if _, ok := c.Get("never-stored"); ok {
		t.Error("expected miss for unknown fingerprint")
	}
}

func TestCacheExpiredEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(config.CacheConfig{
		Enabled:    true,
		TTLSeconds: -1, // already expired the instant it's written
		MaxEntries: 0,
		Directory:  filepath.Join(dir, "cache"),
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("fp-expired", sampleResult("X")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := c.Get("fp-expired"); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestCacheEvictsLeastRecentlyUsedOverCapacity(t *testing.T) {
	c := testCache(t, 2)

	if err := c.Put("fp1", sampleResult("A")); err != nil {
		t.Fatalf("Put fp1: %v", err)
	}
	if err := c.Put("fp2", sampleResult("B")); err != nil {
		t.Fatalf("Put fp2: %v", err)
	}
	// Touch fp1 so it is more recently used than fp2.
	if _, ok := c.Get("fp1"); !ok {
		t.Fatal("expected fp1 hit before eviction")
	}
	if err := c.Put("fp3", sampleResult("C")); err != nil {
		t.Fatalf("Put fp3: %v", err)
	}

	if _, ok := c.Get("fp2"); ok {
		t.Error("expected fp2 to have been evicted as least recently used")
	}
	if _, ok := c.Get("fp1"); !ok {
		t.Error("expected fp1 to survive eviction")
	}
	if _, ok := c.Get("fp3"); !ok {
		t.Error("expected fp3 to survive eviction")
	}
}

func TestPruneExpiredSweepsOnlyExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(config.CacheConfig{
		Enabled:    true,
		TTLSeconds: -1, // every write is immediately past its TTL
		MaxEntries: 0,
		Directory:  filepath.Join(dir, "cache"),
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("fp1", sampleResult("A")); err != nil {
		t.Fatalf("Put fp1: %v", err)
	}
	if err := c.Put("fp2", sampleResult("B")); err != nil {
		t.Fatalf("Put fp2: %v", err)
	}

	pruned, err := c.PruneExpired()
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("got %d pruned, want 2", pruned)
	}
	if n, err := c.idx.Count(); err != nil || n != 0 {
		t.Fatalf("expected an empty index after the sweep, got n=%d err=%v", n, err)
	}

	fresh := testCache(t, 0)
	if err := fresh.Put("fp1", sampleResult("A")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	pruned, err = fresh.PruneExpired()
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("got %d pruned, want 0 for an unexpired entry", pruned)
	}
	if _, ok := fresh.Get("fp1"); !ok {
		t.Fatal("expected the unexpired entry to survive the sweep")
	}
}

func TestCachePurgeRemovesEverything(t *testing.T) {
	c := testCache(t, 0)
	c.Put("fp1", sampleResult("A"))
	c.Put("fp2", sampleResult("B"))

	if err := c.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, ok := c.Get("fp1"); ok {
		t.Error("expected fp1 gone after purge")
	}
	if _, ok := c.Get("fp2"); ok {
		t.Error("expected fp2 gone after purge")
	}
}

func TestCacheDisabledIsAlwaysMiss(t *testing.T) {
	c, err := Open(config.CacheConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Put("fp1", sampleResult("A")); err != nil {
		t.Fatalf("Put on disabled cache should be a no-op, got error: %v", err)
	}
	if _, ok := c.Get("fp1"); ok {
		t.Error("disabled cache should never report a hit")
	}
}

func TestFingerprintStableForEquivalentQueries(t *testing.T) {
	q1 := model.SearchQuery{
		Kind:           model.QueryByName,
		FirstName:      "  Jose ",
		LastName:       "Garcia",
		CountryOfBirth: "Mexico",
	}
	q2 := model.SearchQuery{
		Kind:           model.QueryByName,
		FirstName:      "Jose",
		LastName:       "Garcia",
		CountryOfBirth: "Mexico",
	}

	if Fingerprint(q1) != Fingerprint(q2) {
		t.Error("expected equivalent queries to fingerprint identically")
	}
}

func TestFingerprintDiffersForDifferentQueries(t *testing.T) {
	q1 := model.SearchQuery{Kind: model.QueryByAlienNumber, AlienNumber: "A12345678"}
	q2 := model.SearchQuery{Kind: model.QueryByAlienNumber, AlienNumber: "A87654321"}

	if Fingerprint(q1) == Fingerprint(q2) {
		t.Error("expected different alien numbers to fingerprint differently")
	}
}
