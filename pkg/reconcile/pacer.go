package reconcile

import (
	"context"
	"time"

	"github.com/ulule/limiter/v3"
)

// Backpressure is the named pacing policy for the commit phase.
type Backpressure struct {
	ChunkSize  int
	ChunkDelay time.Duration
	// Workers bounds concurrent writes inside one chunk; 1 means strictly sequential.
	Workers int
}

func DefaultBackpressure() Backpressure {
	return Backpressure{
		ChunkSize:  5,
		ChunkDelay: 200 * time.Millisecond,
		Workers:    1,
	}
}

func (b Backpressure) normalized() Backpressure {
	if b.ChunkSize <= 0 {
		b.ChunkSize = DefaultBackpressure().ChunkSize
	}
	if b.ChunkDelay < 0 {
		b.ChunkDelay = 0
	}
	if b.Workers <= 0 {
		b.Workers = 1
	}
	if b.Workers > b.ChunkSize {
		b.Workers = b.ChunkSize
	}
	return b
}

// Pacer blocks between two chunks.
type Pacer interface {
	Wait(ctx context.Context) error
}

type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	return sleep(ctx, time.Duration(d))
}

// LimiterPacer draws one token per chunk from a ulule limiter, so several processes
// sharing a redis store also share one write budget.
type LimiterPacer struct {
	limiter *limiter.Limiter
	key     string
	minWait time.Duration
}

func NewLimiterPacer(l *limiter.Limiter, key string) *LimiterPacer {
	return &LimiterPacer{limiter: l, key: key, minWait: 50 * time.Millisecond}
}

func (p *LimiterPacer) Wait(ctx context.Context) error {
	for {
		lctx, err := p.limiter.Get(ctx, p.key)
		if err != nil {
			return err
		}
		if !lctx.Reached {
			return nil
		}
		wait := time.Until(time.Unix(lctx.Reset, 0))
		if wait < p.minWait {
			wait = p.minWait
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
