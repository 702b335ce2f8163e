package httpapi

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTimeout bounds how long a client's limiter survives without a
// request before the sweep reclaims it.
const limiterIdleTimeout = 10 * time.Minute

// limiterEntry pairs a per-client limiter with the last time it served a
// request, so the sweep can tell an idle client from an active one.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// perClientLimiter throttles requests per remote address with a token
// bucket, evicting idle clients' limiters on a fixed sweep so the map
// does not grow unbounded under churn.
type perClientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
}

func newPerClientLimiter(r rate.Limit, burst int) *perClientLimiter {
	return &perClientLimiter{limiters: make(map[string]*limiterEntry), rate: r, burst: burst}
}

func (l *perClientLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastUsed = time.Now()
	return e.limiter
}

// sweep evicts any limiter whose client has gone untouched for longer than
// idle, the same background-sweep shape memstore.Store uses for TTL
// eviction.
func (l *perClientLimiter) sweep(idle time.Duration) {
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	for k, e := range l.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(l.limiters, k)
		}
	}
	l.mu.Unlock()
}

func (l *perClientLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(limiterIdleTimeout)
		}
	}
}

// RateLimit bounds incoming requests per client IP. A nil limiter (rate<=0)
// disables throttling entirely, so servers can opt out. The returned
// middleware starts a background sweep, stopped when ctx is done, that
// frees idle clients' limiters so the map does not grow unbounded under
// churn.
func RateLimit(ctx context.Context, r rate.Limit, burst int) func(http.Handler) http.Handler {
	if r <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := newPerClientLimiter(r, burst)
	go limiter.sweepLoop(ctx)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			host, _, err := net.SplitHostPort(req.RemoteAddr)
			if err != nil {
				host = req.RemoteAddr
			}
			if !limiter.get(host).Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, ErrorBody{
					Code:    "invalid_input",
					Message: "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
