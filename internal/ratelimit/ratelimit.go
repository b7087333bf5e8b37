// Package ratelimit provides the per-user event limiter the connection
// controller consults. The core only depends on the domain.RateLimiter
// interface; this is the default token-bucket implementation.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerUser applies an independent token bucket to each user identity.
type PerUser struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewPerUser creates a limiter allowing r events per second with the given
// burst per user.
func NewPerUser(r rate.Limit, burst int) *PerUser {
	return &PerUser{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Allow reports whether the user may perform another operation now.
// If allowed, the token is consumed.
func (l *PerUser) Allow(userID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Forget drops the user's bucket. Called when a user disconnects so the map
// does not grow without bound.
func (l *PerUser) Forget(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, userID)
}
