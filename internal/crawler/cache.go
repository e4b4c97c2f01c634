// internal/crawler/cache.go
package crawler

import (
	"sync"
	"time"

	"github-contrib-crawler/internal/model"
)

// RepoListCache holds the account's repository list for a bounded time so
// consecutive crawl cycles do not re-list an unchanged account. It is shared,
// read-mostly state: Set replaces the whole entry atomically and resets the
// TTL. The cache is never invalidated by individual repository failures.
type RepoListCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	entries   []model.RepositoryRef
	expiresAt time.Time
}

func NewRepoListCache(ttl time.Duration) *RepoListCache {
	return &RepoListCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached list. The cache is valid only when it is non-empty
// and not expired.
func (c *RepoListCache) Get() ([]model.RepositoryRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.entries) == 0 || c.now().After(c.expiresAt) {
		return nil, false
	}
	return c.entries, true
}

// Set replaces the cached list and resets its TTL.
func (c *RepoListCache) Set(entries []model.RepositoryRef) {
	copied := make([]model.RepositoryRef, len(entries))
	copy(copied, entries)

	c.mu.Lock()
	c.entries = copied
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
}
