package reconcile

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"SolarBudget/internal/apperror"
)

// gate allows one in-flight refresh per series. Concurrent callers share
// the leader's result. The refresh itself runs detached from the caller so
// an abandoned request still fills the cache.
type gate struct {
	group   singleflight.Group
	timeout time.Duration
}

func newGate(timeout time.Duration) *gate {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &gate{timeout: timeout}
}

func (g *gate) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := g.group.DoChan(key, func() (any, error) {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return fn(wctx)
	})
	select {
	case <-ctx.Done():
		return nil, apperror.Transient("abandoned waiting for "+key+" refresh", ctx.Err())
	case res := <-ch:
		return res.Val, res.Err
	}
}
