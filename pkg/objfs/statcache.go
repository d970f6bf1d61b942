package objfs

import (
	"strings"
	"sync"

	"github.com/marmos91/objfs/pkg/store/index"
)

// statCache memoizes file records by normalized path.
//
// Directories are never cached. There is no expiry: every mutation point
// evicts the affected path (or subtree) before touching the index or the
// backend, so a hit is always as fresh as the index.
type statCache struct {
	mu      sync.RWMutex
	entries map[string]*index.Record
}

func newStatCache() *statCache {
	return &statCache{entries: make(map[string]*index.Record)}
}

func (c *statCache) get(path string) (*index.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.entries[path]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (c *statCache) put(rec *index.Record) {
	if rec.IsDir() {
		return
	}

	c.mu.Lock()
	c.entries[rec.Path] = rec.Clone()
	c.mu.Unlock()
}

func (c *statCache) evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// evictTree drops path and every cached descendant of it.
func (c *statCache) evictTree(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path == "" {
		clear(c.entries)
		return
	}

	prefix := path + "/"
	for p := range c.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(c.entries, p)
		}
	}
}

func (c *statCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
