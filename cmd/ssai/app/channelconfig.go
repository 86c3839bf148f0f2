package app

import (
	"context"
	"sync"
	"time"

	"github.com/liveadstitch/ssai-core/pkg/collab"
)

// channelConfigCache wraps a collab.ChannelConfigSource with a short TTL
// cache (spec: "≤5s TTL"), grounded on the same request-scoped-cache
// reasoning as pkg/hlsrewrite's pdtLookupCache and pkg/decision's
// VASTCache — a bounded, single-purpose TTL map has no better fit among
// the pack's ecosystem cache libraries.
type channelConfigCache struct {
	source collab.ChannelConfigSource
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]channelConfigCacheEntry
}

type channelConfigCacheEntry struct {
	cfg       *collab.ChannelConfig
	expiresAt time.Time
}

func newChannelConfigCache(source collab.ChannelConfigSource, ttl time.Duration) *channelConfigCache {
	return &channelConfigCache{source: source, ttl: ttl, entries: make(map[string]channelConfigCacheEntry)}
}

func (c *channelConfigCache) get(ctx context.Context, org, channel string) (*collab.ChannelConfig, error) {
	key := org + "/" + channel

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.cfg, nil
	}

	cfg, err := c.source.GetChannelConfig(ctx, org, channel)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = channelConfigCacheEntry{cfg: cfg, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return cfg, nil
}

// invalidate drops a channel's cached config, e.g. in response to an admin
// webhook signal (spec: "invalidated on an admin webhook signal").
func (c *channelConfigCache) invalidate(org, channel string) {
	c.mu.Lock()
	delete(c.entries, org+"/"+channel)
	c.mu.Unlock()
}
