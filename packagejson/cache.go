/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package packagejson

import "sync"

// Cache holds parsed package.json files keyed by file name, so that every
// import of a dependency resolves against one parse until the manifest
// changes on disk.
type Cache interface {
	// GetOrLoad returns the manifest at path, calling loader on the first
	// request only. Concurrent callers for one path share a single load.
	// A failed load is remembered as well, so a broken manifest is not
	// re-read by every import that probes it.
	GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error)

	// Invalidate forgets path, so the next GetOrLoad reads it again.
	// The project calls it when a manifest is written.
	Invalidate(path string)
}

type cacheEntry struct {
	once sync.Once
	pkg  *PackageJSON
	err  error
}

// MemoryCache is an in-memory Cache, safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*cacheEntry)}
}

// GetOrLoad implements Cache.
func (c *MemoryCache) GetOrLoad(path string, loader func() (*PackageJSON, error)) (*PackageJSON, error) {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if !ok {
		entry = &cacheEntry{}
		c.entries[path] = entry
	}
	c.mu.Unlock()

	// callers that lose the race block here until the first load finishes
	entry.once.Do(func() {
		entry.pkg, entry.err = loader()
	})
	return entry.pkg, entry.err
}

// Invalidate implements Cache. A load still in flight for path completes
// for its callers but is not kept.
func (c *MemoryCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Len returns the number of manifests held, failed loads included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
