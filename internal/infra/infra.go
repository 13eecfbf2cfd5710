// Package infra provides shared infrastructure used by the upstream clients:
// a TTL cache, a token-bucket rate limiter, an HTTP request helper and a
// per-run call counter.
package infra

import (
	"context"
	"sync"
	"time"
)

// --- In-memory cache ---

// CacheEntry holds a cached value with expiration.
type CacheEntry struct {
	Value     any
	ExpiresAt time.Time
}

// Cache is a thread-safe in-memory cache with a default TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache with the given default TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]CacheEntry), ttl: ttl, now: time.Now}
}

// Get returns the value for key unless it is missing or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = CacheEntry{Value: value, ExpiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for key, calling load and caching its
// result on a miss. Errors are not cached.
func (c *Cache) GetOrLoad(key string, load func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate removes a key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Cleanup removes expired entries.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	now := c.now()
	for k, v := range c.entries {
		if now.After(v.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// --- Rate limiter ---

// RateLimiter is a token bucket refilled continuously at a fixed rate.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	burst      float64
	perSecond  float64
	lastRefill time.Time
}

// NewRateLimiter allows perSecond requests on average with bursts of up to
// burst requests. A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		tokens:     float64(burst),
		burst:      float64(burst),
		perSecond:  perSecond,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil || rl.perSecond <= 0 {
		return ctx.Err()
	}
	for {
		rl.mu.Lock()
		rl.refill()
		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - rl.tokens) / rl.perSecond * float64(time.Second))
		rl.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill must be called with mu held.
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.perSecond
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = now
}
