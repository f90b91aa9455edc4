package mw

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientRateLimiter stores a token bucket per client key.
type ClientRateLimiter struct {
	clients map[string]*rate.Limiter
	mu      *sync.RWMutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*rate.Limiter),
		mu:      &sync.RWMutex{},
		r:       r,
		b:       b,
	}
}

// addClient creates a limiter for key unless another request raced us to it.
func (l *ClientRateLimiter) addClient(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.clients[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.clients[key] = limiter
	return limiter
}

// GetLimiter returns the limiter for a client key.
func (l *ClientRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.clients[key]
	l.mu.RUnlock()

	if !exists {
		return l.addClient(key)
	}
	return limiter
}

// ClientKey identifies the caller, preferring ipHeader when a proxy sets it.
func ClientKey(ipHeader string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if ipHeader != "" {
			if v := strings.TrimSpace(strings.Split(c.GetHeader(ipHeader), ",")[0]); v != "" {
				return v
			}
		}
		return c.ClientIP()
	}
}

// RateLimiter is a middleware for per-client rate limiting. A non-positive
// rate disables it.
func RateLimiter(r rate.Limit, b int, key func(*gin.Context) string) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.GetLimiter(key(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
