package lens

import (
	"context"
	"crypto/sha1"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrGroupLimitCPU(t *testing.T) {
	t.Parallel()

	t.Run("limit", func(t *testing.T) {
		const limit = 2
		eg, _ := ErrGroupLimitCPU(context.Background(), limit)
		var running, peak atomic.Int32
		for range 10 {
			eg.Go(func() error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}
		require.NoError(t, eg.Wait())
		assert.LessOrEqual(t, peak.Load(), int32(limit))
	})

	t.Run("default_cpu", func(t *testing.T) {
		eg, _ := ErrGroupLimitCPU(context.Background(), 0)
		started := 0
		for range runtime.NumCPU() {
			if eg.TryGo(func() error { time.Sleep(10 * time.Millisecond); return nil }) {
				started++
			}
		}
		assert.Equal(t, runtime.NumCPU(), started)
		assert.False(t, eg.TryGo(func() error { return nil }))
		require.NoError(t, eg.Wait())
	})

	t.Run("error_cancels", func(t *testing.T) {
		eg, ctx := ErrGroupLimitCPU(context.Background(), 1)
		errFail := errors.New("fail")
		eg.Go(func() error { return errFail })
		require.ErrorIs(t, eg.Wait(), errFail)
		require.ErrorIs(t, ctx.Err(), context.Canceled)
	})
}

func TestAnyKey(t *testing.T) {
	t.Parallel()

	a := anyKey([]Frame{{Function: "a", InApp: true}, {Function: "b"}})
	b := anyKey([]Frame{{Function: "a", InApp: true}, {Function: "b"}})
	c := anyKey([]Frame{{Function: "a"}, {Function: "b"}})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.LessOrEqual(t, len(a), 20)

	assert.Panics(t, func() { anyKey(make(chan int)) })
}

func TestBytesKey(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		t.Parallel()

		// strings of length <= 20 should be returned unchanged
		shorts := []string{
			"",                     // empty
			"hello",                // short ASCII
			"12345678901234567890", // exactly 20 bytes
		}
		for _, s := range shorts {
			got := bytesKey([]byte(s))
			assert.Equal(t, s, got)
		}
	})

	t.Run("long", func(t *testing.T) {
		// strings of length > 20 bytes should be hashed
		long := "123456789012345678901" // 21 bytes
		got := bytesKey([]byte(long))

		// compute expected raw SHA-1 sum
		sum := sha1.Sum([]byte(long))
		expected := string(sum[:])

		// ensure it's the raw SHA-1 bytes, not the original string
		assert.Equal(t, expected, got)
		assert.NotEqual(t, long, got)
	})

	t.Run("different", func(t *testing.T) {
		a := []byte("abcdefghijklmnopqrstuvwxyz")  // 26 bytes
		b := []byte("abcdefghijklmnopqrstuvwxyz0") // 27 bytes, differs by last byte
		c := []byte("abcdefghijklmnopqrstuvwxy0")  // 26 bytes, differs by last byte
		keyA := bytesKey(a)
		keyB := bytesKey(b)
		keyC := bytesKey(c)

		assert.NotEqual(t, keyA, keyB)
		assert.NotEqual(t, keyB, keyC)
		assert.NotEqual(t, keyA, keyC)
	})
}
