package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-coach/internal/llm/configuration"
)

// Redis configuration constants.
const (
	// RedisReadTimeout bounds a single slot reservation round-trip.
	RedisReadTimeout = 5 * time.Second

	// RedisWriteTimeout matches the read timeout.
	RedisWriteTimeout = 5 * time.Second

	// RedisPoolSize sets the maximum number of connections in the Redis pool.
	RedisPoolSize = 10
)

// errInvalidReply indicates the reservation script returned an unexpected value.
var errInvalidReply = errors.New("invalid slot reservation reply")

// reserveSlot books the next free slot using the server clock so every
// process agrees on "now". It stores the booked slot (ms) with an expiry of
// one interval past it and returns the milliseconds the caller must wait.
var reserveSlot = redis.NewScript(`
	local key = KEYS[1]
	local interval = tonumber(ARGV[1])

	local t = redis.call('TIME')
	local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)

	local slot = now
	local last = redis.call('GET', key)
	if last then
		local nextSlot = tonumber(last) + interval
		if nextSlot > slot then
			slot = nextSlot
		end
	end

	redis.call('SET', key, slot, 'PX', slot - now + interval)
	return slot - now
`)

// GlobalInvoker is a fixed-interval governor whose last-invocation time
// lives in Redis, so several processes share one quota. When Redis fails it
// logs, flips into degraded mode and paces with a local Invoker instead.
// While degraded it retries Redis at most once per probe interval and
// returns to shared pacing as soon as a reservation succeeds.
type GlobalInvoker struct {
	client    *redis.Client
	key       string
	minDelay  time.Duration
	probe     time.Duration
	local     *Invoker
	opts      options
	stats     counters
	degraded  atomic.Bool
	nextProbe atomic.Int64 // unix nanos
}

// MinProbeInterval bounds how often a degraded GlobalInvoker retries Redis.
const MinProbeInterval = time.Second

// NewGlobalInvoker creates a Redis-backed governor. If client is nil, one is
// created from cfg.Global.
func NewGlobalInvoker(
	cfg configuration.RateLimitConfig,
	client *redis.Client,
	opts ...Option,
) (*GlobalInvoker, error) {
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("%w: requests per minute must be positive (got %v)",
			configuration.ErrInvalidConfig, cfg.RequestsPerMinute)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if client == nil {
		if cfg.Global.RedisAddr == "" {
			return nil, fmt.Errorf("%w: redis address required for global rate limiting",
				configuration.ErrInvalidConfig)
		}
		client = redis.NewClient(&redis.Options{
			Addr:         cfg.Global.RedisAddr,
			Password:     cfg.Global.RedisPassword,
			DB:           cfg.Global.RedisDB,
			DialTimeout:  cfg.Global.ConnectTimeout,
			ReadTimeout:  RedisReadTimeout,
			WriteTimeout: RedisWriteTimeout,
			PoolSize:     RedisPoolSize,
		})
	}

	key := cfg.Global.Key
	if key == "" {
		key = configuration.DefaultGlobalKey
	}

	minDelay := cfg.MinDelay()
	return &GlobalInvoker{
		client:   client,
		key:      key,
		minDelay: minDelay,
		probe:    max(minDelay, MinProbeInterval),
		local:    NewInvoker(cfg, opts...),
		opts:     o,
	}, nil
}

// Wait reserves the next shared slot and blocks until it arrives. A caller
// whose own context is done paces locally for that call only; the shared
// quota is abandoned only when Redis itself fails.
func (g *GlobalInvoker) Wait(ctx context.Context) time.Duration {
	if g.degraded.Load() && !g.probeDue() {
		return g.local.Wait()
	}

	delay, err := g.reserve(ctx)
	if err != nil {
		if isContextError(ctx, err) {
			g.opts.logger.Debug("global slot reservation abandoned by caller",
				"error", err, "key", g.key)
			return g.local.Wait()
		}
		g.scheduleProbe()
		if !g.degraded.Swap(true) {
			g.opts.logger.Warn("global slot reservation failed, switching to degraded mode",
				"error", err, "key", g.key, "network", isNetworkError(err))
		}
		return g.local.Wait()
	}

	if g.degraded.Swap(false) {
		g.opts.logger.Info("global rate limiting restored", "key", g.key)
	}
	if delay > 0 {
		g.opts.sleep(delay)
	}
	g.stats.record(delay)
	return delay
}

// probeDue reports whether a degraded invoker should try Redis again. Only
// one caller per interval wins the probe.
func (g *GlobalInvoker) probeDue() bool {
	now := g.opts.now().UnixNano()
	next := g.nextProbe.Load()
	return now >= next && g.nextProbe.CompareAndSwap(next, now+int64(g.probe))
}

func (g *GlobalInvoker) scheduleProbe() {
	g.nextProbe.Store(g.opts.now().Add(g.probe).UnixNano())
}

// Invoke waits for the next shared slot, then runs call.
func (g *GlobalInvoker) Invoke(ctx context.Context, call func(context.Context) error) error {
	if wait := g.Wait(ctx); wait > 0 {
		g.opts.logger.Debug("paced inference call", "wait", wait, "scope", "global")
	}
	return call(ctx)
}

// Recover leaves degraded mode if Redis answers again.
func (g *GlobalInvoker) Recover(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if g.degraded.Swap(false) {
		g.opts.logger.Info("global rate limiting restored", "key", g.key)
	}
	return nil
}

// Degraded reports whether the governor is pacing locally.
func (g *GlobalInvoker) Degraded() bool { return g.degraded.Load() }

// Stats merges shared and local activity with the Redis pool counters.
func (g *GlobalInvoker) Stats() Stats {
	s := g.stats.snapshot()
	local := g.local.Stats()
	s.Invocations += local.Invocations
	s.Delayed += local.Delayed
	s.TotalWait += local.TotalWait
	s.DegradedMode = g.degraded.Load()

	if ps := g.client.PoolStats(); ps != nil {
		s.PoolHits = ps.Hits
		s.PoolMisses = ps.Misses
		s.PoolTimeouts = ps.Timeouts
	}
	return s
}

// Close releases the Redis client.
func (g *GlobalInvoker) Close() error { return g.client.Close() }

func (g *GlobalInvoker) reserve(ctx context.Context) (time.Duration, error) {
	intervalMs := g.minDelay.Milliseconds()
	if intervalMs <= 0 {
		return 0, nil
	}

	res, err := reserveSlot.Run(ctx, g.client, []string{g.key}, intervalMs).Result()
	if err != nil {
		return 0, fmt.Errorf("reserve slot: %w", err)
	}

	waitMs, ok := res.(int64)
	if !ok || waitMs < 0 {
		return 0, fmt.Errorf("%w: %v", errInvalidReply, res)
	}
	return time.Duration(waitMs) * time.Millisecond, nil
}

// isContextError reports whether the reservation failed because the
// caller's context ended rather than because Redis misbehaved.
func isContextError(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// isNetworkError reports whether err came from the connection rather than
// from Redis itself.
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var redisErr redis.Error
	return !errors.As(err, &redisErr)
}
