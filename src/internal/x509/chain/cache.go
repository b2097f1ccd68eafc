// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/metrics"
)

// CRLCacheEntry represents a cached CRL with metadata
type CRLCacheEntry struct {
	Data       []byte    // PEM armored CRL
	FetchedAt  time.Time // When this CRL was fetched
	NextUpdate time.Time // When this CRL expires (from CRL.NextUpdate)
	URL        string    // Source URL for debugging
}

// isFresh checks if the cached CRL is still fresh
func (entry *CRLCacheEntry) isFresh(now time.Time) bool {
	return entry.NextUpdate.After(now) && entry.FetchedAt.After(now.Add(-24*time.Hour))
}

// isExpired checks if the CRL has expired and should be cleaned up
func (entry *CRLCacheEntry) isExpired(now time.Time) bool {
	// one hour of grace past NextUpdate
	return entry.NextUpdate.Before(now.Add(-1 * time.Hour))
}

// CRLCacheConfig holds configuration for the CRL cache
type CRLCacheConfig struct {
	MaxSize         int           // Maximum number of CRLs to cache (0 = unlimited, but not recommended)
	CleanupInterval time.Duration // How often to run cleanup (default: 1 hour)
}

// CRLCacheMetrics tracks cache performance and usage
type CRLCacheMetrics struct {
	Size        int64 // Current number of cached CRLs
	Hits        int64 // Number of cache hits
	Misses      int64 // Number of cache misses
	Evictions   int64 // Number of LRU evictions
	Cleanups    int64 // Number of expired CRL cleanups
	TotalMemory int64 // Approximate memory usage in bytes
}

// DefaultCRLCacheConfig is used for zero or invalid configuration values.
var DefaultCRLCacheConfig = CRLCacheConfig{
	MaxSize:         100,
	CleanupInterval: 1 * time.Hour,
}

// CRLCache is an LRU cache of downloaded CRLs keyed by URL.
// Entries are fresh while their NextUpdate lies ahead and they were fetched
// within the last day.
//
// CRLCache is safe for concurrent use by multiple goroutines.
type CRLCache struct {
	mu      sync.Mutex
	entries map[string]*CRLCacheEntry
	order   []string // least recently used first
	config  CRLCacheConfig
	now     func() time.Time

	hits, misses, evictions, cleanups atomic.Int64
	cleanupRunning                    atomic.Bool
}

// NewCRLCache creates an empty cache. A nil config selects
// [DefaultCRLCacheConfig].
func NewCRLCache(config *CRLCacheConfig) *CRLCache {
	c := &CRLCache{
		entries: make(map[string]*CRLCacheEntry),
		config:  DefaultCRLCacheConfig,
		now:     time.Now,
	}
	c.SetConfig(config)
	return c
}

// SetConfig replaces the cache configuration and prunes the cache if it
// is now above the maximum size.
func (c *CRLCache) SetConfig(config *CRLCacheConfig) {
	cfg := DefaultCRLCacheConfig
	if config != nil {
		cfg = *config
	}
	if cfg.MaxSize < 0 {
		cfg.MaxSize = 0
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCRLCacheConfig.CleanupInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config = cfg
	if cfg.MaxSize > 0 {
		c.evictLocked(cfg.MaxSize)
	}
}

// Config returns a copy of the current configuration.
func (c *CRLCache) Config() CRLCacheConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// evictLocked drops least recently used entries until at most limit remain.
func (c *CRLCache) evictLocked(limit int) {
	for len(c.entries) > limit && len(c.order) > 0 {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
		c.evictions.Add(1)
	}
}

// touchLocked moves url to the most recently used position.
func (c *CRLCache) touchLocked(url string) {
	if i := slices.Index(c.order, url); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
	c.order = append(c.order, url)
}

// Get returns a copy of a fresh cached CRL and marks it recently used.
func (c *CRLCache) Get(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok || !entry.isFresh(c.now()) {
		c.misses.Add(1)
		metrics.RecordCRLCacheLookup(false)
		return nil, false
	}

	c.hits.Add(1)
	metrics.RecordCRLCacheLookup(true)
	c.touchLocked(url)

	return slices.Clone(entry.Data), true
}

// Set stores a CRL, evicting the least recently used entry when full.
func (c *CRLCache) Set(url string, data []byte, nextUpdate time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[url]; !exists && c.config.MaxSize > 0 {
		c.evictLocked(c.config.MaxSize - 1)
	}

	c.entries[url] = &CRLCacheEntry{
		Data:       slices.Clone(data),
		FetchedAt:  c.now(),
		NextUpdate: nextUpdate,
		URL:        url,
	}
	c.touchLocked(url)
	metrics.RecordCRLCacheSize(len(c.entries), c.memoryLocked())
}

// Order returns the cached URLs from least to most recently used.
func (c *CRLCache) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// Cleanup removes CRLs that have expired beyond their NextUpdate time and
// returns how many were removed.
func (c *CRLCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for url, entry := range c.entries {
		if !entry.isExpired(now) {
			continue
		}
		delete(c.entries, url)
		if i := slices.Index(c.order, url); i >= 0 {
			c.order = slices.Delete(c.order, i, i+1)
		}
		removed++
	}

	c.cleanups.Add(int64(removed))
	metrics.RecordCRLCacheSize(len(c.entries), c.memoryLocked())
	return removed
}

// StartCleanup runs [CRLCache.Cleanup] on the configured interval until ctx
// is done. Only one cleanup loop runs per cache; further calls return at once.
func (c *CRLCache) StartCleanup(ctx context.Context) {
	if !c.cleanupRunning.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer c.cleanupRunning.Store(false)

		ticker := time.NewTicker(c.Config().CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
				// Update ticker interval in case config changed
				ticker.Reset(c.Config().CleanupInterval)
			}
		}
	}()
}

// Metrics returns current cache metrics.
func (c *CRLCache) Metrics() CRLCacheMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CRLCacheMetrics{
		Size:        int64(len(c.entries)),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Cleanups:    c.cleanups.Load(),
		TotalMemory: c.memoryLocked(),
	}
}

// memoryLocked approximates the bytes held by the entries.
func (c *CRLCache) memoryLocked() int64 {
	var total int64
	for _, entry := range c.entries {
		total += int64(len(entry.Data)) + int64(len(entry.URL)) + 24
	}
	return total
}

// Stats returns a formatted string with cache statistics
func (c *CRLCache) Stats() string {
	m := c.Metrics()
	config := c.Config()

	hitRate := float64(0)
	totalRequests := m.Hits + m.Misses
	if totalRequests > 0 {
		hitRate = float64(m.Hits) / float64(totalRequests) * 100
	}

	return fmt.Sprintf("CRL Cache Statistics:\n"+
		"  Size: %d/%d entries\n"+
		"  Memory Usage: %.2f KB\n"+
		"  Hit Rate: %.1f%% (%d hits, %d misses)\n"+
		"  Evictions: %d\n"+
		"  Cleanups: %d\n"+
		"  Cleanup Interval: %v",
		m.Size, config.MaxSize,
		float64(m.TotalMemory)/1024,
		hitRate, m.Hits, m.Misses,
		m.Evictions,
		m.Cleanups,
		config.CleanupInterval)
}
