package lens

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// componentCost approximates the retained bytes of one component reference in a cached variant.
const componentCost = 64

type cachedGrouping struct {
	variants Variants
	fallback bool
}

// VariantCache memoizes grouping of identical stacks within a run. Grouping is a pure function of the stack frames
// and direction, so events sharing a stack share their variants. A nil cache groups every event directly.
type VariantCache struct {
	cache *ristretto.Cache[string, *cachedGrouping]
}

// NewVariantCache creates a cache bounded to roughly maxMB of retained variants.
func NewVariantCache(maxMB int) (*VariantCache, error) {
	maxCost := int64(max(maxMB, 1)) << 20
	cache, err := ristretto.NewCache(&ristretto.Config[string, *cachedGrouping]{
		NumCounters: max(maxCost/componentCost/4, 1024), // ~10x the expected entry count
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create variant cache failed: %w", err)
	}
	return &VariantCache{cache: cache}, nil
}

// Group returns the grouping variants of the event, reusing a prior result for the same stack when available.
func (c *VariantCache) Group(event *Event, inverted bool) *GroupingResult {
	if c == nil {
		return GroupEvent(event, inverted)
	}

	key := event.stackKey(inverted)
	if cached, ok := c.cache.Get(key); ok {
		return &GroupingResult{
			EventID:  event.ID,
			Inverted: inverted,
			Fallback: cached.fallback,
			Variants: cached.variants,
			Cached:   true,
		}
	}

	result := GroupEvent(event, inverted)
	var cost int64
	for _, v := range result.Variants {
		cost += int64(v.Len()+len(v.TreeLabel)) * componentCost
	}
	c.cache.Set(key, &cachedGrouping{variants: result.Variants, fallback: result.Fallback}, max(cost, 1))
	return result
}

// Wait blocks until pending cache writes are visible.
func (c *VariantCache) Wait() {
	if c != nil {
		c.cache.Wait()
	}
}

// Stats returns the cache hit and miss counts.
func (c *VariantCache) Stats() (uint64, uint64) {
	if c == nil || c.cache.Metrics == nil {
		return 0, 0
	}
	return c.cache.Metrics.Hits(), c.cache.Metrics.Misses()
}

// Close releases the cache resources.
func (c *VariantCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
