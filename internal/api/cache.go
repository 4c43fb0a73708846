package api

import (
	"os"
	"strconv"
	"sync"

	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// ReportCache is a thread-safe LRU cache of the latest report per run.
//
// Each run has a generation that Invalidate bumps. A reader records the
// generation before loading a report from the store and fills the cache with
// PutIfCurrent, so a load that raced a newer submission is never cached.
type ReportCache struct {
	mu          sync.Mutex
	maxSize     int
	entries     map[string]*cacheEntry
	order       []string // oldest first
	generations map[string]uint64
}

type cacheEntry struct {
	report *scoring.Report
}

// NewReportCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 100.
func NewReportCache(maxSize int) *ReportCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &ReportCache{
		maxSize:     maxSize,
		entries:     make(map[string]*cacheEntry),
		generations: make(map[string]uint64),
	}
}

// NewReportCacheFromEnv creates a cache with size from REPORT_CACHE_SIZE env var.
func NewReportCacheFromEnv() *ReportCache {
	size := 100
	if v := os.Getenv("REPORT_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewReportCache(size)
}

// Get retrieves a run's report from the cache, or nil if not found.
func (c *ReportCache) Get(runID string) *scoring.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[runID]
	if !ok {
		return nil
	}

	// Move to end (most recently used)
	c.moveToEnd(runID)
	return entry.report
}

// Generation returns the run's current cache generation.
func (c *ReportCache) Generation(runID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[runID]
}

// PutIfCurrent caches report only if the run has not been invalidated since
// gen was read. It reports whether the report was cached.
func (c *ReportCache) PutIfCurrent(runID string, gen uint64, report *scoring.Report) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[runID] != gen {
		return false
	}
	c.put(runID, report)
	return true
}

// Put adds a run's report to the cache, evicting the oldest if full.
func (c *ReportCache) Put(runID string, report *scoring.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(runID, report)
}

func (c *ReportCache) put(runID string, report *scoring.Report) {
	if _, ok := c.entries[runID]; ok {
		c.entries[runID] = &cacheEntry{report: report}
		c.moveToEnd(runID)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[runID] = &cacheEntry{report: report}
	c.order = append(c.order, runID)
}

// Invalidate drops a run's cached report and bumps its generation.
func (c *ReportCache) Invalidate(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[runID]++
	if _, ok := c.entries[runID]; !ok {
		return
	}
	delete(c.entries, runID)
	for i, k := range c.order {
		if k == runID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ReportCache) moveToEnd(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, id)
			return
		}
	}
}
