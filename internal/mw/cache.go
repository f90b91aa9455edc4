package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET responses in memory until they expire or
// any write goes through Invalidate. A response is only stored if no flush
// happened while it was being computed.
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewResponseCache returns a cache holding entries for ttl. A zero ttl
// disables caching.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Enabled reports whether responses are cached at all.
func (rc *ResponseCache) Enabled() bool {
	return rc != nil && rc.ttl > 0
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	if rc.Enabled() {
		rc.mu.Lock()
		rc.generation++
		rc.store.Flush()
		rc.mu.Unlock()
	}
}

// Cache serves repeated GET requests from memory.
func (rc *ResponseCache) Cache() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rc.Enabled() || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		gen := rc.currentGeneration()
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			rc.storeIfCurrent(key, gen, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			})
		}
	}
}

func (rc *ResponseCache) currentGeneration() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.generation
}

// storeIfCurrent drops a response that was computed across a flush.
func (rc *ResponseCache) storeIfCurrent(key string, gen uint64, resp cachedResponse) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.generation != gen {
		return
	}
	rc.store.Set(key, resp, rc.ttl)
}

// Invalidate flushes the cache after every successful non-GET request, so
// reads never see a view older than the last write.
func (rc *ResponseCache) Invalidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		if s := c.Writer.Status(); s >= 200 && s < 300 {
			rc.Flush()
		}
	}
}
