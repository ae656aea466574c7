// Package metacache is the process-wide path -> resource meta map: bounded
// size, per-entry TTL, prefix invalidation, folder-level warm fill on miss
// (spec §4.4). It is backed by hashicorp/golang-lru's expirable LRU, the
// same size+TTL-bounded cache shape the wider retrieval pack reaches for
// next to viper/cobra/conc.
package metacache

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// DefaultSize and DefaultTTL mirror spec §6's configuration defaults.
const (
	DefaultSize = 2000
	DefaultTTL  = 60 * time.Second
)

// Loader performs a folder-level PROPFIND and returns canonical path -> meta
// for the folder and every child, already split-file resolved. It is
// injected so tests can substitute a deterministic, in-memory backend (spec
// §9: "treat [the cache] as an injected dependency").
type Loader func(ctx context.Context, folder string) (map[string]*model.Meta, error)

// Cache is safe for concurrent use by many request goroutines.
type Cache struct {
	mu     sync.Mutex
	lru    *expirable.LRU[string, *model.Meta]
	loader Loader
}

// New builds a Cache bounded to size entries with the given per-entry TTL,
// backed by loader for on-miss folder fetches.
func New(size int, ttl time.Duration, loader Loader) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		lru:    expirable.NewLRU[string, *model.Meta](size, nil, ttl),
		loader: loader,
	}
}

// Get returns the meta for path, or nil if the resource does not exist (or
// could not be determined — spec §7 treats transport and parse errors on
// the loader path as a plain miss, never as an error bubbled to the
// caller). On a cache miss it triggers a folder-level PROPFIND on
// parent(path) via the injected loader, populates every child's meta in one
// pass, then re-checks the cache — matching the provider's
// "get_resource_meta" miss path in the original implementation.
func (c *Cache) Get(ctx context.Context, path string) *model.Meta {
	c.mu.Lock()
	if meta, ok := c.lru.Get(path); ok {
		c.mu.Unlock()
		return meta
	}
	c.mu.Unlock()

	folder := pathutil.Parent(path)
	fetched, err := c.loader(ctx, folder)
	if err != nil {
		log.Printf("metacache: folder fetch for %s failed, treating %s as missing: %v", folder, path, err)
		return nil
	}

	c.SetBulk(fetched)

	c.mu.Lock()
	defer c.mu.Unlock()
	meta, _ := c.lru.Get(path)
	return meta
}

// SetBulk inserts every (path, meta) pair, overwriting any existing entry
// and resetting its TTL. Used after any listing call, per spec §4.4.
func (c *Cache) SetBulk(entries map[string]*model.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, meta := range entries {
		c.lru.Add(path, meta)
	}
}

// Invalidate removes path if it names a file (no trailing slash), or every
// cached entry whose key has path as a string prefix otherwise. Used on
// DELETE, after PUT close, and after MOVE/COPY (spec §4.4).
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !pathutil.IsCollectionPath(path) {
		c.lru.Remove(path)
		return
	}

	for _, key := range c.lru.Keys() {
		if pathutil.HasPrefix(key, path) {
			c.lru.Remove(key)
		}
	}
}

// Len reports the current number of cached entries; used by tests and
// diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Children returns the direct children of folder currently cached (no
// nested descendants), keyed by their canonical path. It never triggers a
// backend fetch; callers must warm folder first via Get.
func (c *Cache) Children(folder string) map[string]*model.Meta {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]*model.Meta)
	for _, key := range c.lru.Keys() {
		if key == folder || !pathutil.HasPrefix(key, folder) {
			continue
		}
		rest := key[len(folder):]
		rest = strings.TrimSuffix(rest, "/")
		if rest == "" || strings.Contains(rest, "/") {
			continue // nested descendant, not a direct child
		}
		if meta, ok := c.lru.Peek(key); ok {
			out[key] = meta
		}
	}
	return out
}
