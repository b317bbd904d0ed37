// Package workpool runs independent indexed calls on a bounded number of
// goroutines with fail-fast cancellation.
package workpool

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// MaxDefaultWorkers caps DefaultWorkers.
const MaxDefaultWorkers = 32

// DefaultWorkers returns min(32, NumCPU+4), the usual I/O bound pool size.
func DefaultWorkers() int {
	return min(MaxDefaultWorkers, runtime.NumCPU()+4)
}

// Config controls a Run.
type Config struct {
	// Workers bounds concurrent calls. Values <= 0 use DefaultWorkers.
	Workers int
	// CallTimeout bounds every call; zero means no per-call deadline.
	CallTimeout time.Duration
	// RateLimit caps dispatched calls per second; zero means unlimited.
	RateLimit float64
	// Progress, when set, is called after each completed call. Calls may
	// be concurrent.
	Progress func(done, total int)
}

// EffectiveWorkers returns the pool size Run uses for c.
func (c Config) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return DefaultWorkers()
	}
	return c.Workers
}

// Run calls fn once for every index in [0, total). The first error stops
// dispatch: indexes not yet started are skipped and the error is returned
// once the calls already running have finished. Running calls are detached
// from cancellation and only bounded by CallTimeout.
//
// When ctx is cancelled before every index ran, Run returns ctx.Err().
func Run(ctx context.Context, total int, cfg Config, fn func(ctx context.Context, i int) error) error {
	if total <= 0 {
		return ctx.Err()
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.EffectiveWorkers())

	var done atomic.Int64
	for i := 0; i < total; i++ {
		if gctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				break
			}
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			callCtx := context.WithoutCancel(gctx)
			if cfg.CallTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(callCtx, cfg.CallTimeout)
				defer cancel()
			}
			if err := fn(callCtx, i); err != nil {
				return err
			}
			n := done.Add(1)
			if cfg.Progress != nil {
				cfg.Progress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
