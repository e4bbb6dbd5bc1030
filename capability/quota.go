package capability

import (
	"time"

	"github.com/coracle-social/kgroups/pkg/ratelimit"
)

// QuotaTracker implements the rate-limit counters a capability's quota
// describes, one token bucket per (holder, capability event id) pair, so
// two capabilities with different quotas never share a bucket.
type QuotaTracker struct {
	limiters map[string]*ratelimit.MapLimiter
}

// NewQuotaTracker returns an empty tracker. Buckets are created lazily per
// capability event id the first time Allow sees its RateLimit.
func NewQuotaTracker() *QuotaTracker {
	return &QuotaTracker{limiters: make(map[string]*ratelimit.MapLimiter)}
}

// Allow consumes one token from c's rate limit bucket for holderKey (the
// holder's pubkey hex), at time now. Capabilities without a RateLimit
// qualifier are always allowed.
func (q *QuotaTracker) Allow(c *Capability, holderKey string, now time.Time) bool {
	if c.Qualifiers == nil || c.Qualifiers.RateLimit == nil {
		return true
	}
	limiter, ok := q.limiters[c.EventID]
	if !ok {
		rl := c.Qualifiers.RateLimit
		limiter = ratelimit.New(rl.Count, time.Duration(rl.PeriodSeconds)*time.Second, 0)
		q.limiters[c.EventID] = limiter
	}
	return limiter.Allow(holderKey, now)
}
