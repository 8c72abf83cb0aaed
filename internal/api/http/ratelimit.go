package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/postspot/user-service/internal/auth"
	apperrors "github.com/postspot/user-service/pkg/util/errorutil"
)

// RateLimiterConfig bounds how fast one caller may mutate the graph.
type RateLimiterConfig struct {
	PerMinute       int
	Burst           int
	CleanupInterval time.Duration
}

type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per authenticated caller.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	retryAfter string
	ttl        time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	limiters map[string]*callerLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter and its background cleanup. A zero
// PerMinute returns nil, which Middleware treats as unlimited.
func NewRateLimiter(cfg RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if cfg.PerMinute <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		limit:      rate.Limit(float64(cfg.PerMinute) / 60.0),
		burst:      cfg.Burst,
		retryAfter: strconv.Itoa((60 + cfg.PerMinute - 1) / cfg.PerMinute),
		ttl:        2 * cfg.CleanupInterval,
		logger:     logger,
		limiters:   make(map[string]*callerLimiter),
		stopCh:     make(chan struct{}),
	}
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects callers that exhausted their bucket with 429. It must
// run after the auth middleware.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl == nil {
			return c.Next()
		}
		key := c.IP()
		if identity, ok := auth.IdentityFromContext(c); ok {
			key = identity.SubjectID
		}

		if !rl.get(key).Allow() {
			c.Set(fiber.HeaderRetryAfter, rl.retryAfter)
			rl.logger.Warn("rate limit exceeded", zap.String("caller", key), zap.String("route", c.Route().Path))
			return apperrors.NewRateLimited()
		}
		return c.Next()
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &callerLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > rl.ttl {
			delete(rl.limiters, key)
		}
	}
}
