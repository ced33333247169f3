package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type rateLimiter struct {
	mu     sync.Mutex
	times  map[string][]time.Time
	max    int
	window time.Duration
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{times: make(map[string][]time.Time), max: max, window: window}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-r.window)
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		return false
	}
	r.times[key] = append(slice, now)
	return true
}

// RateLimit ограничивает запросы по IP (r.RemoteAddr после chimw.RealIP) и по user_id,
// если он уже есть в контексте. 429 при превышении; лимит <= 0 отключает проверку.
func RateLimit(maxPerIP, maxPerUser int, window time.Duration) func(http.Handler) http.Handler {
	byIP := newRateLimiter(maxPerIP, window)
	byUser := newRateLimiter(maxPerUser, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxPerIP > 0 && !byIP.allow(clientIP(r)) {
				http.Error(w, `{"detail":"too many requests"}`, http.StatusTooManyRequests)
				return
			}
			if userID := GetUserID(r.Context()); maxPerUser > 0 && userID != "" {
				if !byUser.allow("u:" + userID) {
					http.Error(w, `{"detail":"too many requests"}`, http.StatusTooManyRequests)
					return
				}
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
