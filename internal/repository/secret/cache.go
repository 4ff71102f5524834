// Package secret caches debug secrets read with a caller's permissions.
package secret

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/cmsearch/internal/domain"
)

// Cache defaults.
const (
	DefaultSize = 256
	DefaultTTL  = time.Minute
)

// reader is the consumer interface for secret storage (ISP).
type reader interface {
	ReadContent(ctx context.Context, caller domain.Caller, path string) (string, error)
}

// Cache memoizes successful reads per caller identity and path. Failed reads
// are never cached.
type Cache struct {
	inner reader
	cache *expirable.LRU[string, string]
	group singleflight.Group
}

// New wraps inner with a cache of size entries expiring after ttl.
func New(inner reader, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		inner: inner,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// ReadContent returns the content at path as seen by caller.
func (c *Cache) ReadContent(ctx context.Context, caller domain.Caller, path string) (string, error) {
	key := caller.Key() + "\x00" + path
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		content, err := c.inner.ReadContent(ctx, caller, path)
		if err != nil {
			return "", err
		}
		c.cache.Add(key, content)
		return content, nil
	})
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return v.(string), nil
}

// Purge drops every cached secret.
func (c *Cache) Purge() { c.cache.Purge() }

// Len returns the number of cached secrets.
func (c *Cache) Len() int { return c.cache.Len() }
