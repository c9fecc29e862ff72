// Package ratelimit paces calls to the external inference service.
//
// The Invoker is a strict fixed-interval governor: consecutive calls are
// spaced at least 60s/RequestsPerMinute apart, with no queue, no burst
// allowance and no jitter. A caller that arrives early blocks for the
// remainder of the interval. The wait is deliberately not cancellable; the
// governor is used from batch contexts where a blocked caller has nothing
// else to do. Rate limiting never fails, it only delays.
//
// GlobalInvoker shares the same slot across processes through Redis and
// degrades to the local governor when Redis is unreachable.
package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-coach/internal/llm/configuration"
)

// Governor runs a call once the pacing policy allows it.
type Governor interface {
	Invoke(ctx context.Context, call func(context.Context) error) error
}

// Do runs fn through g and returns its result unchanged.
func Do[T any](ctx context.Context, g Governor, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := g.Invoke(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// Option configures an Invoker or GlobalInvoker.
type Option func(*options)

type options struct {
	now    func() time.Time
	sleep  func(time.Duration)
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		now:    time.Now,
		sleep:  time.Sleep,
		logger: slog.Default().With("component", "ratelimit"),
	}
}

// WithClock replaces the wall clock and the blocking sleep. Tests use it to
// observe waits without actually sleeping.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
		if sleep != nil {
			o.sleep = sleep
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.With("component", "ratelimit")
		}
	}
}

// Invoker is a process-local fixed-interval governor. It is safe for
// concurrent use: each call reserves its slot under the limiter's mutex, so
// two callers never observe the same last-invocation time.
type Invoker struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	opts     options
	stats    counters
}

// NewInvoker builds an Invoker spaced by cfg.MinDelay. A non-positive rate
// disables pacing.
func NewInvoker(cfg configuration.RateLimitConfig, opts ...Option) *Invoker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	minDelay := cfg.MinDelay()
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}

	return &Invoker{
		// Burst 1 so a full bucket admits exactly one call: the first call
		// never waits and every later call waits for its own slot.
		limiter:  rate.NewLimiter(limit, 1),
		minDelay: minDelay,
		opts:     o,
	}
}

// MinDelay returns the configured spacing between calls.
func (i *Invoker) MinDelay() time.Duration { return i.minDelay }

// Wait blocks until the next slot and returns how long it waited.
func (i *Invoker) Wait() time.Duration {
	now := i.opts.now()
	delay := i.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay > 0 {
		i.opts.sleep(delay)
	}
	i.stats.record(delay)
	return delay
}

// Invoke waits for the next slot, then runs call. The call's error is
// returned unchanged.
func (i *Invoker) Invoke(ctx context.Context, call func(context.Context) error) error {
	if wait := i.Wait(); wait > 0 {
		i.opts.logger.Debug("paced inference call", "wait", wait)
	}
	return call(ctx)
}

// Stats returns a snapshot of the invoker's counters.
func (i *Invoker) Stats() Stats { return i.stats.snapshot() }

type counters struct {
	invocations atomic.Int64
	waited      atomic.Int64
	totalWait   atomic.Int64
}

func (c *counters) record(delay time.Duration) {
	c.invocations.Add(1)
	if delay > 0 {
		c.waited.Add(1)
		c.totalWait.Add(int64(delay))
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Invocations: c.invocations.Load(),
		Delayed:     c.waited.Load(),
		TotalWait:   time.Duration(c.totalWait.Load()),
	}
}
