// Package ratelimit applies a token bucket per string key, used by
// capability.QuotaTracker to enforce per-capability rate limits.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MapLimiter holds one token bucket per key and periodically evicts entries
// that have gone idle past idleTTL.
type MapLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	byKey   map[string]*entry
	hits    uint64
	idleTTL time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a key-based limiter allowing count events per period. Returns
// nil if count or period are non-positive, matching the "invalid args ->
// nil limiter" convention the collaborator's Allow treats as unlimited.
func New(count int, period time.Duration, idleTTL time.Duration) *MapLimiter {
	if count <= 0 || period <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	rps := float64(count) / period.Seconds()
	return &MapLimiter{
		limit:   rate.Limit(rps),
		burst:   count,
		byKey:   make(map[string]*entry),
		idleTTL: idleTTL,
	}
}

// Allow reports whether one token can be consumed for key at now. A nil
// receiver always allows, so an unconfigured quota is a no-op rather than a
// crash.
func (l *MapLimiter) Allow(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
		l.byKey[key] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}
