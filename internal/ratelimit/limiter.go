// Package ratelimit bounds tool-invocation frequency with sliding-window
// counters: one global bucket for aggregate load, plus per-tool buckets with
// stricter ceilings for destructive and mutating operations.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"grimm.is/dnsmcp/internal/clock"
)

// Limit is a ceiling of Max admissions per trailing Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Error is returned by callers that convert a rejection into an error.
// It never reaches the remote API.
type Error struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %dms", e.Tool, e.RetryAfter.Milliseconds())
}

// Limiter admits or rejects tool invocations. Safe for concurrent use;
// prune-check-append is atomic per check.
type Limiter struct {
	mu  sync.Mutex
	clk clock.Clock

	global       Limit
	globalBucket []time.Time

	overrides map[string]Limit
	buckets   map[string][]time.Time
}

// New creates a limiter with the given global ceiling and per-tool
// overrides. A nil clk uses the real clock.
func New(global Limit, overrides map[string]Limit, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Limiter{
		clk:       clk,
		global:    global,
		overrides: overrides,
		buckets:   make(map[string][]time.Time),
	}
}

// Tool override tiers. Destructive operations are rate limited hardest:
// a malfunctioning caller invoking deletes in a loop is capped independently
// of the global budget.
var (
	destructiveLimit = Limit{Max: 5, Window: time.Minute}
	mutateLimit      = Limit{Max: 10, Window: time.Minute}
)

// DefaultOverrides returns the per-tool limit table for the standard tool set.
func DefaultOverrides() map[string]Limit {
	overrides := make(map[string]Limit)
	for _, tool := range []string{
		"dns_delete_zone", "dns_delete_record", "dns_flush_cache",
		"dns_flush_blocked", "dns_uninstall_app",
	} {
		overrides[tool] = destructiveLimit
	}
	for _, tool := range []string{
		"dns_create_zone", "dns_add_record", "dns_update_record",
		"dns_block_domain", "dns_allow_domain",
	} {
		overrides[tool] = mutateLimit
	}
	return overrides
}

// Check admits or rejects one invocation of the named tool. On rejection the
// decision carries the delay after which the oldest admission leaves the
// window.
func (l *Limiter) Check(tool string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()

	l.globalBucket = prune(l.globalBucket, now, l.global.Window)
	if len(l.globalBucket) >= l.global.Max {
		return Decision{RetryAfter: retryAfter(l.globalBucket[0], l.global.Window, now)}
	}

	limit, limited := l.overrides[tool]
	if limited {
		bucket := prune(l.buckets[tool], now, limit.Window)
		l.buckets[tool] = bucket
		if len(bucket) >= limit.Max {
			return Decision{RetryAfter: retryAfter(bucket[0], limit.Window, now)}
		}
		l.buckets[tool] = append(bucket, now)
	}

	l.globalBucket = append(l.globalBucket, now)
	return Decision{Allowed: true}
}

// prune drops timestamps older than now-window, preserving order.
func prune(bucket []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(bucket) && bucket[i].Before(cutoff) {
		i++
	}
	return bucket[i:]
}

// retryAfter is when the oldest admission falls out of the window. Clamped
// to a millisecond so a rejection never suggests an instant retry.
func retryAfter(oldest time.Time, window time.Duration, now time.Time) time.Duration {
	d := oldest.Add(window).Sub(now)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
