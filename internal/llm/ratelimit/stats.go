package ratelimit

import "time"

// Stats exposes the governor's activity for logging and evaluation reports.
type Stats struct {
	// Invocations is the number of calls that passed through the governor.
	Invocations int64
	// Delayed is the number of calls that had to wait for their slot.
	Delayed int64
	// TotalWait is the cumulative time spent blocked.
	TotalWait time.Duration
	// DegradedMode reports that a global governor fell back to local pacing.
	DegradedMode bool
	// PoolHits is the number of Redis connections reused from the pool.
	PoolHits uint32
	// PoolMisses is the number of new Redis connections created.
	PoolMisses uint32
	// PoolTimeouts is the number of Redis connection acquisition timeouts.
	PoolTimeouts uint32
}
