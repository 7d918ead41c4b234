package middleware

import (
	"math"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"minichat/internal/observability"
)

// idleTTL is how long an untouched key keeps its bucket.
const idleTTL = 10 * time.Minute

// LimiterStore hands out one token bucket per key. Keys are auth attempts:
// "email:<addr>" from the auth handler, "<route>|<ip>" from RateLimit.
type LimiterStore struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	*rate.Limiter
	touched time.Time
}

// NewLimiterStore allows perMinute attempts per key with the given burst and
// drops idle keys every sweep.
func NewLimiterStore(perMinute, burst int, sweep time.Duration) *LimiterStore {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	s := &LimiterStore{
		every:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		now:     time.Now,
		buckets: map[string]*bucket{},
		stop:    make(chan struct{}),
	}
	go s.sweepEvery(sweep)
	return s
}

func (s *LimiterStore) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *LimiterStore) sweep() {
	cutoff := s.now().Add(-idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if b.touched.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Stop ends the sweeper.
func (s *LimiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Allow takes one token for key.
func (s *LimiterStore) Allow(key string) bool {
	now := s.now()
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(s.every, s.burst)}
		s.buckets[key] = b
	}
	b.touched = now
	s.mu.Unlock()
	return b.AllowN(now, 1)
}

// RetryAfter is the wait, in whole seconds, until a drained key earns a token.
func (s *LimiterStore) RetryAfter() int {
	return int(math.Ceil(1 / float64(s.every)))
}

func (s *LimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit throttles each auth route per client IP. Every route has its own
// budget.
func RateLimit(store *LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if store.Allow(route + "|" + observability.IPFromRequest(c.Request)) {
			c.Next()
			return
		}
		observability.IncAuthAttempt(path.Base(route), "throttled")
		c.Header("Retry-After", strconv.Itoa(store.RetryAfter()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
	}
}
