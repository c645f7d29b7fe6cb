package v1

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyedLimiter is a per-key token bucket. Idle entries are dropped after
// the cleanup interval so the map does not grow with client churn.
type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newKeyedLimiter(perMinute int, burst int) *keyedLimiter {
	return &keyedLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		lastSeen: 10 * time.Minute,
	}
}

// Allow reports whether the caller identified by key may proceed.
func (k *keyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	entry, ok := k.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = entry
	}
	entry.seen = now

	for key, e := range k.limiters {
		if now.Sub(e.seen) > k.lastSeen {
			delete(k.limiters, key)
		}
	}

	return entry.limiter.Allow()
}
