package binary

import (
	"sync"
	"time"
)

// CacheKey identifies one installed version of a dependency.
func CacheKey(dependency, version string) string {
	return dependency + "@" + version
}

// LatestKey identifies the "latest" alias of a dependency from repo.
func LatestKey(dependency, repo string) string {
	return dependency + "@latest:" + repo
}

type aliasEntry struct {
	version    string
	resolvedAt time.Time
}

// Cache is the in-process install cache. It maps CacheKey values to
// records and remembers which concrete version "latest" last resolved to.
// The zero value is not usable; call NewCache.
//
// Keys always carry concrete versions. The lock is held only for map
// access, never across I/O.
type Cache struct {
	mu      sync.Mutex
	records map[string]InstallRecord
	aliases map[string]aliasEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		records: make(map[string]InstallRecord),
		aliases: make(map[string]aliasEntry),
	}
}

// Get returns a copy of the record stored under key.
func (c *Cache) Get(key string) (InstallRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[key]
	if !ok {
		return InstallRecord{}, false
	}
	return rec.clone(), true
}

// Put replaces the record stored under key.
func (c *Cache) Put(key string, rec InstallRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[key] = rec.clone()
}

// Delete forgets key. Files on disk are left alone.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, key)
}

// Alias returns the concrete version key last resolved to and when.
func (c *Cache) Alias(key string) (string, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.aliases[key]
	return a.version, a.resolvedAt, ok
}

// SetAlias records that key resolved to version at resolvedAt.
func (c *Cache) SetAlias(key, version string, resolvedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[key] = aliasEntry{version: version, resolvedAt: resolvedAt}
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
