package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim    *rate.Limiter
	seen   time.Time
	warned bool
}

// userLimiter keeps one token bucket per Telegram user and forgets idle ones.
type userLimiter struct {
	mu        sync.Mutex
	limiters  map[int64]*limiterEntry
	perSecond rate.Limit
	burst     int
	lastSweep time.Time
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if burst < 1 {
		burst = 1
	}
	return &userLimiter{
		limiters:  make(map[int64]*limiterEntry),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// Allow reports whether userID may send another update now. warn is true for
// the first rejected update after an accepted one, so the user is told once.
func (l *userLimiter) Allow(userID int64) (ok, warn bool) {
	if l.perSecond <= 0 {
		return true, false
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		for id, e := range l.limiters {
			if now.Sub(e.seen) > limiterIdleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastSweep = now
	}

	e, found := l.limiters[userID]
	if !found {
		e = &limiterEntry{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.limiters[userID] = e
	}
	e.seen = now
	if e.lim.AllowN(now, 1) {
		e.warned = false
		return true, false
	}
	warn = !e.warned
	e.warned = true
	return false, warn
}
