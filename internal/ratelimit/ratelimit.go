// Package ratelimit throttles how often a single user can run commands.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a set of token buckets keyed by user id. Each bucket holds
// count tokens and refills one every window/count.
type Limiter struct {
	mu      sync.Mutex
	users   map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// New allows count commands per window for each user.
func New(count int, window time.Duration) *Limiter {
	return &Limiter{
		users:   make(map[string]*entry),
		limit:   rate.Every(window / time.Duration(count)),
		burst:   count,
		idleTTL: 2 * window,
		now:     time.Now,
	}
}

// Allow reports whether userID may run a command now.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.users[userID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[userID] = e
	}
	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// Sweep forgets users idle for longer than twice the window and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for id, e := range l.users {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.users, id)
			dropped++
		}
	}
	return dropped
}
