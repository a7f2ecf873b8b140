// ratelimit.go provides Gin middleware that enforces per-client rate limits,
// returning 429 responses when the configured requests-per-minute threshold is
// exceeded. Counters live in a RateLimitStore: an in-process token bucket for
// single-instance deployments, or Redis when several instances must share one
// limit.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/audittrail/audittrail/internal/config"
)

// RateLimitStore tracks request budgets per client key.
type RateLimitStore interface {
	// Allow consumes one unit of budget for key. It reports whether the
	// request may proceed and approximately how much budget remains.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	// Stop releases any background resources held by the store.
	Stop()
}

// NewRateLimitStore builds the store selected by the configuration.
func NewRateLimitStore(cfg config.RateLimitingConfig) (RateLimitStore, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return NewRedisRateLimitStore(client, cfg.RequestsPerMinute), nil
	case "memory", "":
		return NewMemoryRateLimitStore(cfg.RequestsPerMinute, cfg.Burst, 5*time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", cfg.Backend)
	}
}

// rateLimitEntry tracks the token bucket for a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryRateLimitStore implements a token-bucket limiter in process memory.
type MemoryRateLimitStore struct {
	requestsPerMinute int
	burstSize         int
	entries           map[string]*rateLimitEntry
	mu                sync.Mutex
	stopCh            chan struct{}
	stopOnce          sync.Once
}

// NewMemoryRateLimitStore creates an in-memory store and starts its cleanup
// goroutine.
func NewMemoryRateLimitStore(requestsPerMinute, burstSize int, cleanupInterval time.Duration) *MemoryRateLimitStore {
	if burstSize < 1 {
		burstSize = 1
	}
	s := &MemoryRateLimitStore{
		requestsPerMinute: requestsPerMinute,
		burstSize:         burstSize,
		entries:           make(map[string]*rateLimitEntry),
		stopCh:            make(chan struct{}),
	}

	go s.cleanup(cleanupInterval)

	return s
}

// cleanup periodically removes entries that have gone idle
func (s *MemoryRateLimitStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, entry := range s.entries {
				if now.Sub(entry.lastUpdate) > 10*time.Minute {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

// Allow implements RateLimitStore.
func (s *MemoryRateLimitStore) Allow(ctx context.Context, key string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, exists := s.entries[key]

	if !exists {
		// New client, give them full burst
		s.entries[key] = &rateLimitEntry{
			tokens:     float64(s.burstSize) - 1,
			lastUpdate: now,
		}
		return true, s.burstSize - 1, nil
	}

	elapsed := now.Sub(entry.lastUpdate)
	tokensPerSecond := float64(s.requestsPerMinute) / 60.0
	tokensToAdd := elapsed.Seconds() * tokensPerSecond

	entry.tokens = min(float64(s.burstSize), entry.tokens+tokensToAdd)
	entry.lastUpdate = now

	if entry.tokens >= 1 {
		entry.tokens--
		return true, int(entry.tokens), nil
	}

	return false, 0, nil
}

// Stop stops the cleanup goroutine.
func (s *MemoryRateLimitStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// RedisRateLimitStore implements a fixed-window limiter on Redis so the limit
// is shared across server instances.
type RedisRateLimitStore struct {
	client            *redis.Client
	requestsPerMinute int
}

// NewRedisRateLimitStore creates a Redis-backed store.
func NewRedisRateLimitStore(client *redis.Client, requestsPerMinute int) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, requestsPerMinute: requestsPerMinute}
}

// Allow implements RateLimitStore. Each key gets a counter per minute-aligned
// window; the counter expires with the window.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string) (bool, int, error) {
	window := time.Now().Unix() / 60
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit increment failed: %w", err)
	}

	count := int(incr.Val())
	remaining := s.requestsPerMinute - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= s.requestsPerMinute, remaining, nil
}

// Ping reports whether Redis is reachable. Used by the readiness probe.
func (s *RedisRateLimitStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stop closes the Redis client.
func (s *RedisRateLimitStore) Stop() {
	_ = s.client.Close()
}

// RateLimitMiddleware creates a Gin middleware that rate limits requests using
// the given store. Store failures fail open: an unreachable Redis must not
// take the API down with it.
func RateLimitMiddleware(store RateLimitStore, requestsPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		allowed, remaining, err := store.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Warn("rate limit store unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}

// getRateLimitKey determines the key to use for rate limiting
/// Priority: authenticated user > IP address
func getRateLimitKey(c *gin.Context) string {
	if userID, exists := c.Get(UserIDKey); exists {
		if id, ok := userID.(int64); ok && id != 0 {
			return "user:" + strconv.FormatInt(id, 10)
		}
	}

	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
