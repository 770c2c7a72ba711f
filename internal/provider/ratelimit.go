package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// fallbackInterval applies to sources that have no configured interval.
const fallbackInterval = time.Second

// Default minimum interval between requests, per provider.
var defaultIntervals = map[ProviderName]time.Duration{
	NameMusicBrainz: time.Second,
	NameCoverArt:    200 * time.Millisecond,
	NameDiscogs:     time.Second,
	NameLastFM:      200 * time.Millisecond,
	NameDeezer:      200 * time.Millisecond,
	NameFanartTV:    333 * time.Millisecond,
}

// DefaultIntervals returns a copy of the built-in per-provider intervals.
func DefaultIntervals() map[ProviderName]time.Duration {
	out := make(map[ProviderName]time.Duration, len(defaultIntervals))
	for k, v := range defaultIntervals {
		out[k] = v
	}
	return out
}

// RateLimiterMap holds one limiter per provider. Every adapter for a given
// provider must share the same map so no call path bypasses the throttle.
// Each limiter has a burst of one, so consecutive requests to a provider are
// spaced by at least its interval and waiters are served in arrival order.
type RateLimiterMap struct {
	mu        sync.RWMutex
	limiters  map[ProviderName]*rate.Limiter
	intervals map[ProviderName]time.Duration
}

// NewRateLimiterMap creates limiters for all known providers. Entries in
// overrides replace the default interval; a zero or negative override
// disables throttling for that provider (tests only).
func NewRateLimiterMap(overrides map[ProviderName]time.Duration) *RateLimiterMap {
	intervals := DefaultIntervals()
	for name, d := range overrides {
		intervals[name] = d
	}
	m := &RateLimiterMap{
		limiters:  make(map[ProviderName]*rate.Limiter, len(intervals)),
		intervals: intervals,
	}
	for name, d := range intervals {
		m.limiters[name] = newLimiter(d)
	}
	return m
}

// Wait blocks until the limiter for the given provider admits a request, or
// the context is canceled. Unknown providers get a limiter on first use.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		m.mu.Lock()
		limiter, ok = m.limiters[name]
		if !ok {
			m.intervals[name] = fallbackInterval
			limiter = newLimiter(fallbackInterval)
			m.limiters[name] = limiter
		}
		m.mu.Unlock()
	}
	return limiter.Wait(ctx)
}

// Interval returns the configured minimum interval for a provider.
func (m *RateLimiterMap) Interval(name ProviderName) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.intervals[name]; ok {
		return d
	}
	return fallbackInterval
}

func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// NoThrottle returns overrides that disable every built-in limiter.
func NoThrottle() map[ProviderName]time.Duration {
	out := make(map[ProviderName]time.Duration, len(defaultIntervals))
	for k := range defaultIntervals {
		out[k] = 0
	}
	return out
}
