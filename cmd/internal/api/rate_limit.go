package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxLimiterKeys = 100_000

// limiterEntry holds one client's token bucket and when it was last used.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps a token bucket per client key: limit events per window, refilled evenly.
// Idle keys are swept once their bucket would be full again.
type ipLimiter struct {
	mu        sync.Mutex
	every     rate.Limit
	burst     int
	idle      time.Duration
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	if limit <= 0 {
		limit = defaultInviteRateLimit
	}
	if window <= 0 {
		window = defaultInviteRateWindow
	}
	return &ipLimiter{
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		idle:     window,
		limiters: make(map[string]*limiterEntry),
	}
}

// Allow reports whether an event for key at now is permitted. When it is not, the
// returned duration is how long until a token is available.
func (l *ipLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	lim, ok := l.get(key, now)
	if !ok {
		return false, l.idle
	}

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, l.idle
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *ipLimiter) get(key string, now time.Time) (*rate.Limiter, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idle || len(l.limiters) >= maxLimiterKeys {
		l.sweep(now)
		l.lastSweep = now
	}

	if e, ok := l.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter, true
	}
	if len(l.limiters) >= maxLimiterKeys {
		// Table is full of live keys; refuse new ones rather than grow.
		return nil, false
	}
	lim := rate.NewLimiter(l.every, l.burst)
	l.limiters[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim, true
}

func (l *ipLimiter) sweep(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.limiters, k)
		}
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int64(retryAfter / time.Second)
	if retryAfter%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
}
