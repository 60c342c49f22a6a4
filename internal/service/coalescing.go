package service

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// requestCoalescer collapses concurrent fetches for the same key into one call.
// Waiters give up after timeout or when their own context ends; the shared call keeps running.
type requestCoalescer[V any] struct {
	group   singleflight.Group
	timeout time.Duration
}

func newRequestCoalescer[V any](timeout time.Duration) *requestCoalescer[V] {
	return &requestCoalescer[V]{timeout: timeout}
}

// GetOrDo returns the result of the in-flight call for key, starting fn if none is running.
// shared reports whether the result was delivered to more than one caller.
func (rc *requestCoalescer[V]) GetOrDo(ctx context.Context, key string, fn func() (V, error)) (v V, shared bool, err error) {
	ch := rc.group.DoChan(key, func() (any, error) {
		return fn()
	})

	waitCtx := ctx
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-waitCtx.Done():
		return v, false, waitCtx.Err()
	}
}
