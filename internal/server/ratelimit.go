package server

import (
	"net"
	"net/http"

	"github.com/go-chi/render"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const ipLimiterCacheSize = 4096

// ipRateLimiter keeps one token bucket per client address. The least
// recently seen clients are evicted once the cache is full.
type ipRateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *lru.Cache[string, *rate.Limiter]
}

func newIPRateLimiter(rps float64, burst, size int) (*ipRateLimiter, error) {
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, err
	}
	return &ipRateLimiter{limit: rate.Limit(rps), burst: burst, limiters: cache}, nil
}

func (l *ipRateLimiter) get(key string) *rate.Limiter {
	if lim, ok := l.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	// a concurrent request for the same key may have won the race
	if prev, ok, _ := l.limiters.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, map[string]string{
				"status": "Too many requests.",
				"error":  "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the request's remote host. RealIP has already replaced
// RemoteAddr when the request came through a proxy.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
