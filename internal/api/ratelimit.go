package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter tracks one token bucket per client IP. Buckets idle past
// the eviction window are dropped so the map does not grow without bound.
type rateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	limit      rate.Limit
	burst      int
	trustProxy bool
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const evictAfter = 3 * time.Minute

// newRateLimiter creates a limiter refilling at burst tokens per minute.
// trustProxy enables the X-Forwarded-For header as the client identity;
// only set it behind a proxy that overwrites the header.
func newRateLimiter(burst int, trustProxy bool) *rateLimiter {
	return &rateLimiter{
		clients:    make(map[string]*clientLimiter),
		limit:      rate.Limit(float64(burst) / 60.0),
		burst:      burst,
		trustProxy: trustProxy,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cl, ok := rl.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now

	if len(rl.clients) > rl.burst {
		rl.evictLocked(now)
	}
	return cl.limiter.Allow()
}

func (rl *rateLimiter) evictLocked(now time.Time) {
	for ip, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > evictAfter {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			// First address is the original client.
			ip, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// middleware answers 429 once a client exhausts its bucket. A zero burst
// disables limiting entirely.
func (rl *rateLimiter) middleware() middleware {
	return func(next http.Handler) http.Handler {
		if rl.burst <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(rl.clientIP(r)) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
