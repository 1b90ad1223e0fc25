package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long an IP's limiter survives without requests.
	limiterIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore holds a map of IP addresses to their rate limiters.
type rateLimiterStore struct {
	limiters  map[string]*limiterEntry
	perMin    int
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func newRateLimiterStore(perMin int) *rateLimiterStore {
	if perMin <= 0 {
		perMin = 200
	}
	return &rateLimiterStore{limiters: make(map[string]*limiterEntry), perMin: perMin, now: time.Now}
}

// getLimiter returns the rate limiter for a given IP, creating one if it doesn't exist.
// Idle limiters are swept at most once per sweepInterval.
func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweep(now)
	}
	entry, exists := s.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)}
		s.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops limiters idle for longer than limiterIdleTTL. Callers hold mu.
func (s *rateLimiterStore) sweep(now time.Time) {
	for ip, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.limiters, ip)
		}
	}
	s.lastSweep = now
}

// RateLimitMiddleware limits requests per IP address to perMin a minute.
func RateLimitMiddleware(perMin int) gin.HandlerFunc {
	store := newRateLimiterStore(perMin)
	return func(c *gin.Context) {
		ip := getClientIP(c)
		if !store.getLimiter(ip).Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
