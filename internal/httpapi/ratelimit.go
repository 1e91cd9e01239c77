package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pbx-connector/internal/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures a keyed token-bucket limiter.
type RateLimitConfig struct {
	Rate  rate.Limit
	Burst int
	// MaxAge is how long an idle limiter is kept before eviction.
	MaxAge time.Duration
}

// DialRateLimitConfig caps click-to-call per user: one origination per second, bursts of 3.
func DialRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Rate: rate.Limit(1), Burst: 3, MaxAge: 10 * time.Minute}
}

// AuthRateLimitConfig caps token endpoints per client IP.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Rate: rate.Limit(5), Burst: 10, MaxAge: 10 * time.Minute}
}

type limitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter holds one limiter per key. Idle keys are evicted by a
// background loop until Stop is called.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*limitEntry
	cfg     RateLimitConfig
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

func NewKeyedLimiter(cfg RateLimitConfig) *KeyedLimiter {
	l := &KeyedLimiter{
		entries: map[string]*limitEntry{},
		cfg:     cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &limitEntry{limiter: rate.NewLimiter(l.cfg.Rate, l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastSeen = l.now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

func (l *KeyedLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *KeyedLimiter) cleanupLoop() {
	interval := l.cfg.MaxAge / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *KeyedLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.MaxAge)
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// RateLimitByUser limits per authenticated user, falling back to the client IP.
// Must run after auth.RequireAccessToken.
func RateLimitByUser(l *KeyedLimiter) gin.HandlerFunc {
	return rateLimit(l, func(c *gin.Context) string {
		if uid, err := auth.UserID(c.Request.Context()); err == nil {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByIP limits per client IP.
func RateLimitByIP(l *KeyedLimiter) gin.HandlerFunc {
	return rateLimit(l, func(c *gin.Context) string { return "ip:" + c.ClientIP() })
}

func rateLimit(l *KeyedLimiter, keyOf func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyOf(c)
		if !l.Allow(key) {
			slog.Warn("rate limit exceeded", "key", key, "method", c.Request.Method, "path", c.FullPath())
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
