// internal/crawler/cache_test.go
package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-contrib-crawler/internal/model"
)

func TestRepoListCache(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []model.RepositoryRef{
		{Owner: "o", Name: "alpha"},
		{Owner: "o", Name: "beta"},
	}

	newCache := func(ttl time.Duration) (*RepoListCache, *time.Time) {
		clock := now
		c := NewRepoListCache(ttl)
		c.now = func() time.Time { return clock }
		return c, &clock
	}

	t.Run("misses while empty", func(t *testing.T) {
		c, _ := newCache(time.Hour)
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("hits before the TTL expires", func(t *testing.T) {
		c, clock := newCache(time.Hour)
		c.Set(entries)

		*clock = now.Add(59 * time.Minute)
		got, ok := c.Get()
		require.True(t, ok)
		assert.Equal(t, entries, got)
	})

	t.Run("misses after the TTL expires", func(t *testing.T) {
		c, clock := newCache(time.Hour)
		c.Set(entries)

		*clock = now.Add(61 * time.Minute)
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("treats an empty stored list as invalid", func(t *testing.T) {
		c, _ := newCache(time.Hour)
		c.Set(nil)
		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("replacing the list resets the TTL", func(t *testing.T) {
		c, clock := newCache(time.Hour)
		c.Set(entries)

		*clock = now.Add(50 * time.Minute)
		replacement := []model.RepositoryRef{{Owner: "o", Name: "gamma"}}
		c.Set(replacement)

		*clock = now.Add(100 * time.Minute)
		got, ok := c.Get()
		require.True(t, ok)
		assert.Equal(t, replacement, got)
	})

	t.Run("owns its copy of the entries", func(t *testing.T) {
		c, _ := newCache(time.Hour)
		source := []model.RepositoryRef{{Owner: "o", Name: "alpha"}}
		c.Set(source)
		source[0].Name = "mutated"

		got, ok := c.Get()
		require.True(t, ok)
		assert.Equal(t, "alpha", got[0].Name)
	})
}
