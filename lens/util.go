package lens

import (
	"context"
	"crypto/sha1"
	"runtime"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// ErrGroupLimitCPU returns an errgroup and derived context limited to NumCPU, or to limit when positive.
func ErrGroupLimitCPU(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	errGroup, ctx := errgroup.WithContext(ctx)
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	errGroup.SetLimit(limit)
	return errGroup, ctx
}

func anyKey(a any) string {
	b, err := msgpack.Marshal(a)
	if err != nil {
		panic(err)
	}
	return bytesKey(b)
}

// bytesKey provides a minimum string to be used for internal logic as a key. The string is NOT valid UTF-8, expected
// to only be used for internal comparisons and never provided externally.
func bytesKey(b []byte) string {
	if len(b) <= 20 { // 20 is the byte size of sha1, if at or below that just use the raw string
		return string(b)
	}
	sha := sha1.Sum(b)
	return string(sha[:])
}
