package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Coalescer deduplicates concurrent work per key: while one caller (the owner)
// runs fn, later callers for the same key block and share the owner's result.
// The zero value is ready to use.
//
// Cancellation is per waiter. A waiter whose context ends detaches and gets
// ctx.Err(); the in-flight fn keeps running for the remaining callers. fn must
// therefore carry its own deadline rather than borrowing any one caller's.
type Coalescer struct {
	group singleflight.Group
}

// Do executes fn once per key among concurrent callers. shared reports whether
// the result was delivered to more than one caller.
func (c *Coalescer) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := c.group.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops the in-flight record for key so the next Do starts fresh.
func (c *Coalescer) Forget(key string) {
	c.group.Forget(key)
}
