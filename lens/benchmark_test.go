package lens

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeDeepTestStack builds a stack of depth frames with a sentinel every sentinelEvery frames, zero disables sentinels.
func makeDeepTestStack(depth, sentinelEvery int) ([]*Component, []Frame) {
	specs := make([]string, depth)
	for i := range specs {
		specs[i] = fmt.Sprintf("f%d", i)
		if sentinelEvery > 0 && i%sentinelEvery == 0 {
			specs[i] += ":sentinel"
		} else if i%7 == 0 {
			specs[i] += ":app"
		} else if i%5 == 0 {
			specs[i] += ":prefix"
		}
	}
	return makeStack(specs...)
}

func BenchmarkHierarchy(b *testing.B) {
	for _, depth := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("Sentinel-%d", depth), func(b *testing.B) {
			components, frames := makeDeepTestStack(depth, 3)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Hierarchy(MainVariant(components), components, frames, false)
			}
		})
		b.Run(fmt.Sprintf("Fallback-%d", depth), func(b *testing.B) {
			components, frames := makeDeepTestStack(depth, 0)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = Hierarchy(MainVariant(components), components, frames, false)
			}
		})
	}
}

func BenchmarkGroupEvents(b *testing.B) {
	events := groupTestEvents(1000)
	for _, cached := range []bool{false, true} {
		b.Run(fmt.Sprintf("Cached-%v", cached), func(b *testing.B) {
			var cache *VariantCache
			if cached {
				var err error
				cache, err = NewVariantCache(16)
				require.NoError(b, err)
				defer cache.Close()
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := GroupEvents(context.Background(), events, GroupOptions{Cache: cache})
				require.NoError(b, err)
			}
		})
	}
}

func BenchmarkDecodeEvents(b *testing.B) {
	events := groupTestEvents(100)
	for _, name := range []string{"bench.json", "bench.msgpack", "bench.msgpack.zst"} {
		b.Run(name, func(b *testing.B) {
			data, err := EncodeEvents(name, events)
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, err := DecodeEvents(name, data)
				require.NoError(b, err)
			}
		})
	}
}
