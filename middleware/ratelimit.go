package middleware

import (
	"crypto/subtle"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"music-player-go/logcolors"
	"music-player-go/stats"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a limiter allowing r requests per second per
// client with bursts up to burst.
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    burst,
	}
}

// Burst returns the configured burst size.
func (i *IPRateLimiter) Burst() int {
	return i.burst
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, ok := i.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Prune forgets clients not seen within idle and returns how many were removed.
func (i *IPRateLimiter) Prune(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, v := range i.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

// Remaining returns the whole tokens left in a bucket.
func Remaining(l *rate.Limiter) int {
	return int(math.Max(0, math.Floor(l.Tokens())))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware rejects clients over their budget with 429. Requests
// bearing the configured API key bypass the limit.
func RateLimitMiddleware(limiter *IPRateLimiter, apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provided := r.Header.Get("X-API-Key"); apiKey != "" && provided != "" &&
				subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1 {
				w.Header().Set("X-RateLimit-Bypass", "true")
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			l := limiter.GetLimiter(ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))

			if !l.Allow() {
				stats.Get().RateLimitExceeded.Add(1)
				log.Warnf("%s %s exceeded the rate limit", logcolors.LogRateLimit, ip)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(Remaining(l)))
			next.ServeHTTP(w, r)
		})
	}
}
