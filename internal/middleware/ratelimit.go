package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// sweepEvery bounds how many keys may accumulate before expired windows are dropped.
const sweepEvery = 1024

type window struct {
	count int
	until time.Time
}

type limiter struct {
	mu      sync.Mutex
	limit   int
	per     time.Duration
	now     func() time.Time
	windows map[string]*window
}

// allow records one hit for key and reports the wait before the next allowed hit.
func (l *limiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.windows) >= sweepEvery {
		for k, w := range l.windows {
			if now.After(w.until) {
				delete(l.windows, k)
			}
		}
	}
	w, ok := l.windows[key]
	if !ok || now.After(w.until) {
		w = &window{until: now.Add(l.per)}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, w.until.Sub(now)
	}
	w.count++
	return true, 0
}

// RateLimit allows limit requests per client IP in each window of length per.
// It expects chi's RealIP to have normalised RemoteAddr. A non-positive limit
// disables the check.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := &limiter{limit: limit, per: per, now: time.Now, windows: make(map[string]*window)}
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.allow(clientIP(r))
			if !ok {
				secs := int(wait.Round(time.Second).Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many story requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
