package resolve

import "sync"

// MetadataCache memoizes resolved package metadata by normalized request key
// (name@versionRequirement) for the lifetime of one process. It is shared by
// all concurrent resolutions.
//
// Only valid [PackageInfo] values are inserted, so a failed lookup is simply
// retried on the next reference. Concurrent writers of one key store equal
// values (the registry is assumed deterministic within a process lifetime),
// so last-write-wins is safe.
type MetadataCache struct {
	mu      sync.Mutex
	entries map[string]PackageInfo
}

// NewMetadataCache creates an empty metadata cache.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{entries: make(map[string]PackageInfo)}
}

// Lookup returns the cached info for key, if present.
func (c *MetadataCache) Lookup(key string) (PackageInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.entries[key]
	return info, ok
}

// Insert stores info under key. Callers must only insert valid values.
func (c *MetadataCache) Insert(key string, info PackageInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = info
}

// Len returns the number of cached entries.
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
