// Package handler provides the HTTP surface of the relay server.
package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voxrelay/voxrelay/internal/ui"
)

const (
	// DefaultCacheTTL is the default time-to-live for cache entries.
	DefaultCacheTTL = 5 * time.Minute

	// CleanupInterval is how often the cache sweeper runs.
	CleanupInterval = 1 * time.Minute
)

// cacheEntry is one cached response with its expiry.
type cacheEntry struct {
	response []byte
	expireAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// RelayCache is a thread-safe in-memory cache for completion responses,
// keyed by a SHA-256 hash of the request body. Identical prompts within
// the TTL get the stored answer without touching the upstream rotation.
type RelayCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	logger  *slog.Logger
	stop    chan struct{}

	hits   int64
	misses int64
}

// RelayCacheOption is a functional option for configuring RelayCache.
type RelayCacheOption func(*RelayCache)

// WithCacheTTL sets a custom TTL for cache entries.
func WithCacheTTL(ttl time.Duration) RelayCacheOption {
	return func(c *RelayCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets a custom logger.
func WithCacheLogger(logger *slog.Logger) RelayCacheOption {
	return func(c *RelayCache) { c.logger = logger }
}

// NewRelayCache creates a RelayCache and starts its background sweeper.
func NewRelayCache(opts ...RelayCacheOption) *RelayCache {
	c := &RelayCache{
		entries: make(map[string]*cacheEntry),
		ttl:     DefaultCacheTTL,
		logger:  slog.Default(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.sweepLoop()

	return c
}

// HashRequest generates the cache key for a request body.
func HashRequest(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached response by key. Expired entries count as
// misses and are dropped on the spot.
func (c *RelayCache) Get(key string) ([]byte, bool) {
	now := time.Now()

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists || entry.expired(now) {
		c.mu.Lock()
		if exists {
			delete(c.entries, key)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	return entry.response, true
}

// Set stores a response under key with the configured TTL.
func (c *RelayCache) Set(key string, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		response: response,
		expireAt: time.Now().Add(c.ttl),
	}
}

// Stats returns cache hit/miss statistics and the entry count.
func (c *RelayCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}

// Close stops the background sweeper.
func (c *RelayCache) Close() {
	close(c.stop)
}

// sweepLoop periodically removes expired entries until Close.
func (c *RelayCache) sweepLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep removes all expired entries from the cache.
func (c *RelayCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 && c.logger != nil {
		c.logger.Debug("cache sweep",
			slog.Int("expired_entries", expired),
			slog.Int("remaining_entries", len(c.entries)),
		)
	}
}

// CacheMiddleware returns a Gin middleware that caches completion
// responses. The request body is hashed; a hit short-circuits the
// handler chain, a miss captures the downstream 200 response.
func CacheMiddleware(cache *RelayCache, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != "/openai/chat/completions" {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}

		// Restore body for downstream handlers.
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		cacheKey := HashRequest(bodyBytes)

		if cachedResponse, found := cache.Get(cacheKey); found {
			if logger != nil {
				logger.Info("cache hit",
					slog.String("cache_key", cacheKey[:12]+"..."),
				)
			}
			ui.PrintCacheHit(cacheKey, 0)

			c.Set("cache_hit", true)
			c.Data(http.StatusOK, "application/json", cachedResponse)
			c.Abort()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			cache.Set(cacheKey, writer.body.Bytes())

			if logger != nil {
				logger.Debug("response cached",
					slog.String("cache_key", cacheKey[:12]+"..."),
					slog.Int("size_bytes", writer.body.Len()),
				)
			}
		}
	}
}

// responseWriter wraps gin.ResponseWriter to capture the response body.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body while writing to the original writer.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
