package decision

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// VASTCache is a content-addressed (sha1(url)) in-memory cache for parsed
// VAST XML bodies with a 5-minute TTL, collapsing concurrent identical
// fetches for the same URL into a single HTTP round trip via
// golang.org/x/sync/singleflight.
type VASTCache struct {
	ttl   time.Duration
	mu    sync.Mutex
	byKey map[string]cacheEntry
	group singleflight.Group
}

// NewVASTCache constructs an empty cache with the given TTL.
func NewVASTCache(ttl time.Duration) *VASTCache {
	return &VASTCache{ttl: ttl, byKey: make(map[string]cacheEntry)}
}

func cacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns a cached body for url if present and unexpired.
func (c *VASTCache) Get(url string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(url)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.body, true
}

// Put stores body for url with the cache's configured TTL.
func (c *VASTCache) Put(url string, body []byte) {
	if c == nil {
		return
	}
	key := cacheKey(url)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = cacheEntry{body: body, expires: time.Now().Add(c.ttl)}
}

// singleflightFetch collapses concurrent calls for the same url into one
// invocation of fetch.
func (c *VASTCache) singleflightFetch(url string, fetch func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fetch()
	}
	v, err, _ := c.group.Do(cacheKey(url), func() (any, error) {
		return fetch()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
