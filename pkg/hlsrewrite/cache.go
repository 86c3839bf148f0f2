package hlsrewrite

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
)

// pdtLookupCache memoizes ManifestWindow parses and PDT scans within a
// single viewer request, keyed by a content hash of the raw playlist text.
// Per spec §5 "request-scoped caches", an instance MUST be created fresh per
// request and discarded afterwards — never shared across requests or
// promoted to a package-level global. crypto/sha1 is stdlib-only here
// because this cache never leaves process memory and has no TTL/eviction
// policy to justify an ecosystem cache library (see DESIGN.md).
type pdtLookupCache struct {
	mu      sync.Mutex
	windows map[string]*ManifestWindow
}

// newPDTLookupCache constructs an empty request-scoped cache.
func newPDTLookupCache() *pdtLookupCache {
	return &pdtLookupCache{windows: make(map[string]*ManifestWindow)}
}

func manifestHash(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ParseVariantCached returns a ManifestWindow for text, parsing it once per
// distinct content hash for the lifetime of the cache.
func (c *pdtLookupCache) ParseVariantCached(text string) (*ManifestWindow, error) {
	key := manifestHash(text)

	c.mu.Lock()
	if win, ok := c.windows[key]; ok {
		c.mu.Unlock()
		return win, nil
	}
	c.mu.Unlock()

	win, err := ParseVariant(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.windows[key] = win
	c.mu.Unlock()
	return win, nil
}
