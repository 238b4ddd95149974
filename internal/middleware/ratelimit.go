package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"eventbook-backend/internal/cache"
)

const (
	loginLimit   = 5
	loginWindow  = time.Minute
	signupLimit  = 10
	signupWindow = time.Minute
	resetLimit   = 3
	resetWindow  = 10 * time.Minute
)

func RateLimitLogin(cacheClient cache.Client) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, "rl:login:", loginLimit, loginWindow)
}

func RateLimitSignup(cacheClient cache.Client) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, "rl:signup:", signupLimit, signupWindow)
}

func RateLimitPasswordReset(cacheClient cache.Client) func(http.Handler) http.Handler {
	return rateLimit(cacheClient, "rl:reset:", resetLimit, resetWindow)
}

func rateLimit(cacheClient cache.Client, prefix string, limit int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := prefix + clientIP(r)
			count, err := cacheClient.IncrWithTTL(key, window)
			if err == nil && count > limit {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
