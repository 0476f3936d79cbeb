package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Existence is the tri-state answer for a cached existence check.
type Existence int

const (
	// Unknown means the cache holds no answer; consult the actor.
	Unknown Existence = iota
	// Exists means the entity was recently observed to exist.
	Exists
	// DoesNotExist means the entity was recently observed to be absent.
	DoesNotExist
)

// DefaultTTL bounds how long a cached answer may be trusted.
const DefaultTTL = 2 * time.Minute

// Cache is a thread-safe, absolute-expiration map with existence
// sentinels plus a resolved-value side table (name to id bindings).
type Cache struct {
	inner *gocache.Cache
}

// New builds a cache with the given TTL and janitor sweep interval.
func New(ttl, sweep time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweep <= 0 {
		sweep = ttl
	}
	return &Cache{inner: gocache.New(ttl, sweep)}
}

type existsMarker struct{ present bool }

// SetExists records that the keyed entity exists.
func (c *Cache) SetExists(key string) {
	c.inner.SetDefault(key, existsMarker{present: true})
}

// SetDoesNotExist records that the keyed entity is absent.
func (c *Cache) SetDoesNotExist(key string) {
	c.inner.SetDefault(key, existsMarker{present: false})
}

// Lookup returns the cached existence answer for key.
func (c *Cache) Lookup(key string) Existence {
	v, ok := c.inner.Get(key)
	if !ok {
		return Unknown
	}
	m, ok := v.(existsMarker)
	if !ok {
		return Unknown
	}
	if m.present {
		return Exists
	}
	return DoesNotExist
}

// PutValue caches an arbitrary resolved value (for example a name to id
// binding) under key.
func (c *Cache) PutValue(key, value string) {
	c.inner.SetDefault(key, value)
}

// GetValue returns a cached resolved value.
func (c *Cache) GetValue(key string) (string, bool) {
	v, ok := c.inner.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Invalidate drops any cached answer for key.
func (c *Cache) Invalidate(key string) {
	c.inner.Delete(key)
}
