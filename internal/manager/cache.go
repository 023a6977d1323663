package manager

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached summary kinds.
const (
	cacheWorldSummary     = "world_summary"
	cacheLastEvents       = "last_events"
	cacheNarrativeContext = "narrative_context"
)

type cacheEntry struct {
	version uint64
	expires time.Time
	data    []byte
}

// summaryCache holds serialized world-level summaries. Entries carry the
// write version they were built at; any write bumps the version, which
// retires every entry without touching the LRU. Expiry is checked against the
// manager's clock on read.
type summaryCache struct {
	lru     *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	version uint64
	now     func() time.Time
}

func newSummaryCache(ttl time.Duration, now func() time.Time) *summaryCache {
	c := &summaryCache{ttl: ttl, now: now}
	if ttl > 0 {
		// Only fails for a non-positive size.
		c.lru, _ = lru.New[string, cacheEntry](8)
	}
	return c
}

func (c *summaryCache) invalidate() {
	c.version++
}

func (c *summaryCache) get(kind string) ([]byte, bool) {
	if c.lru == nil {
		return nil, false
	}
	e, ok := c.lru.Get(kind)
	if !ok || e.version != c.version || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.data, true
}

func (c *summaryCache) put(kind string, v any) {
	if c.lru == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.lru.Add(kind, cacheEntry{version: c.version, expires: c.now().Add(c.ttl), data: b})
}

// cached decodes the entry for kind if it is live, no larger than maxSize
// and accepted by ok.
func cached[T any](c *summaryCache, kind string, maxSize int, ok func(T) bool) (T, bool) {
	var v T
	b, hit := c.get(kind)
	if !hit || len(b) > maxSize {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false
	}
	if ok != nil && !ok(v) {
		return v, false
	}
	return v, true
}
