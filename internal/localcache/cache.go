// Package localcache keeps a bounded set of materialized local copies of
// resources, keyed by resource name. Evicted copies are deleted from disk.
package localcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/discochess/transread/internal/stats"
)

// Stats holds cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Cache is a thread-safe LRU of local files.
// Open files handed out by Open stay readable after eviction, since removing
// a file does not invalidate existing descriptors.
type Cache struct {
	mu        sync.Mutex
	entries   *lru.Cache[string, string]
	collector stats.Collector
	logger    *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStats sets the collector for hit, miss, and size metrics.
func WithStats(c stats.Collector) Option {
	return func(cache *Cache) {
		if c != nil {
			cache.collector = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cache *Cache) {
		if l != nil {
			cache.logger = l
		}
	}
}

// New returns a Cache holding at most capacity files.
func New(capacity int, opts ...Option) (*Cache, error) {
	c := &Cache{
		collector: stats.NewNoop(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	entries, err := lru.NewWithEvict(capacity, c.remove)
	if err != nil {
		return nil, fmt.Errorf("creating local copy cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Open opens the cached copy of name. A copy that vanished from disk is
// dropped and reported as a miss.
func (c *Cache) Open(name string) (*os.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, ok := c.entries.Get(name)
	if ok {
		f, err := os.Open(path)
		if err == nil {
			c.hits.Add(1)
			c.collector.IncCounter(stats.MetricCacheHits, 1)
			return f, true
		}
		c.logger.Debug("dropping unreadable cached copy", zap.String("name", name), zap.Error(err))
		c.entries.Remove(name)
		c.collector.SetGauge(stats.MetricCacheSize, int64(c.entries.Len()))
	}

	c.misses.Add(1)
	c.collector.IncCounter(stats.MetricCacheMisses, 1)
	return nil, false
}

// Add records path as the local copy of name and takes ownership of the
// file. A previous copy of name is deleted.
func (c *Cache) Add(name, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries.Peek(name); ok && old != path {
		// Replacing a key does not trigger the eviction callback.
		c.remove(name, old)
	}
	c.entries.Add(name, path)
	c.collector.SetGauge(stats.MetricCacheSize, int64(c.entries.Len()))
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.Len(),
	}
}

// Len returns the number of cached copies.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Close deletes every cached copy.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.collector.SetGauge(stats.MetricCacheSize, 0)
	return nil
}

func (c *Cache) remove(name, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("removing cached copy", zap.String("name", name), zap.String("path", path), zap.Error(err))
		return
	}
	c.logger.Debug("removed cached copy", zap.String("name", name), zap.String("path", path))
}
