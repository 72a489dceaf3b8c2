package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantCache(t *testing.T) {
	t.Parallel()

	t.Run("reuses_identical_stack", func(t *testing.T) {
		cache, err := NewVariantCache(1)
		require.NoError(t, err)
		defer cache.Close()

		first := cache.Group(sampleEvent("first", "f0", "f1:sentinel", "f2"), false)
		cache.Wait()
		second := cache.Group(sampleEvent("second", "f0", "f1:sentinel", "f2"), false)

		assert.False(t, first.Cached)
		assert.True(t, second.Cached)
		assert.Equal(t, "second", second.EventID)
		assert.Equal(t, first.Fallback, second.Fallback)
		assert.Equal(t, variantNames(first.Variants), variantNames(second.Variants))

		hits, misses := cache.Stats()
		assert.Equal(t, uint64(1), hits)
		assert.Equal(t, uint64(1), misses)
	})

	t.Run("ignores_frame_location", func(t *testing.T) {
		cache, err := NewVariantCache(1)
		require.NoError(t, err)
		defer cache.Close()

		first := sampleEvent("first", "f0", "f1:sentinel", "f2")
		second := sampleEvent("second", "f0", "f1:sentinel", "f2")
		yes := true
		second.Frames[0].Contributes = &yes
		second.Frames[2].File = "vendor/f2.go"
		second.Frames[2].Line = 420

		cache.Group(first, false)
		cache.Wait()
		result := cache.Group(second, false)

		assert.True(t, result.Cached)
		assert.Equal(t, "second", result.EventID)
	})

	t.Run("direction_is_keyed", func(t *testing.T) {
		cache, err := NewVariantCache(1)
		require.NoError(t, err)
		defer cache.Close()

		event := sampleEvent("e", "f0:sentinel", "f1", "f2:sentinel")
		crashFirst := cache.Group(event, false)
		cache.Wait()
		inverted := cache.Group(event, true)

		assert.False(t, inverted.Cached)
		assert.True(t, inverted.Inverted)
		assert.Equal(t, []string{"f2"}, componentNames(crashFirst.Variants[VariantDepth(1)]))
		assert.Equal(t, []string{"f0"}, componentNames(inverted.Variants[VariantDepth(1)]))
	})

	t.Run("nil_cache", func(t *testing.T) {
		var cache *VariantCache
		result := cache.Group(sampleEvent("e", "f0", "f1:app", "f2"), false)

		assert.True(t, result.Fallback)
		assert.False(t, result.Cached)
		hits, misses := cache.Stats()
		assert.Zero(t, hits)
		assert.Zero(t, misses)
		cache.Wait()
		cache.Close()
	})
}
