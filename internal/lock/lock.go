package lock

import (
	"context"
	"errors"
	"slices"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding every key. Implementations acquire keys in
// sorted order so overlapping key sets never deadlock.
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// Normalize returns keys sorted with duplicates and empty keys removed.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
