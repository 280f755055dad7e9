package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"loan-tracker/internal/config"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	rateLimitWindow = time.Second
	limiterIdleTTL  = 10 * time.Minute
)

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiterMiddleware limits requests per client IP. With a Redis client the limit
// is a fixed one-second window shared by every instance; without one each process
// keeps its own token buckets.
type RateLimiterMiddleware struct {
	cfg         config.RateLimitConfig
	redisClient redis.Cmdable
	limiters    sync.Map
	logger      *slog.Logger
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewRateLimiterMiddleware(cfg config.RateLimitConfig, redisClient redis.Cmdable, logger *slog.Logger) *RateLimiterMiddleware {
	rl := &RateLimiterMiddleware{
		cfg:         cfg,
		redisClient: redisClient,
		logger:      logger.With("component", "RateLimiter"),
		stop:        make(chan struct{}),
	}

	switch {
	case !cfg.Enabled:
		rl.logger.Info("Rate limiting is disabled via configuration.")
	case redisClient != nil:
		rl.logger.Info("Rate limiter backed by Redis", "limit", rl.windowLimit(), "window", rateLimitWindow)
	default:
		rl.logger.Info("Rate limiter using in-process token buckets", "rps", cfg.RPS, "burst", cfg.Burst)
		go rl.cleanupLimiters()
	}
	return rl
}

// Stop ends the background cleanup of idle in-process limiters.
func (rl *RateLimiterMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiterMiddleware) windowLimit() int64 {
	return int64(math.Max(1, math.Ceil(rl.cfg.RPS)))
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	entry, _ := rl.limiters.LoadOrStore(ip, &localLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), max(rl.cfg.Burst, 1))})
	l := entry.(*localLimiter)
	l.lastSeen.Store(time.Now().UnixNano())
	return l.limiter
}

func (rl *RateLimiterMiddleware) cleanupLimiters() {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiterMiddleware) evictIdle(now time.Time) {
	rl.limiters.Range(func(key, value interface{}) bool {
		if now.Sub(time.Unix(0, value.(*localLimiter).lastSeen.Load())) > limiterIdleTTL {
			rl.limiters.Delete(key)
		}
		return true
	})
}

func (rl *RateLimiterMiddleware) extractIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// allowRedis counts the request in the current window. Redis failures let the
// request through.
func (rl *RateLimiterMiddleware) allowRedis(r *http.Request, ip string) bool {
	ctx := r.Context()
	key := fmt.Sprintf("ratelimit:%s", ip)

	pipe := rl.redisClient.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.ErrorContext(ctx, "Redis pipeline failed during rate limiting check", "error", err, "ip", ip)
		return true
	}

	if ttl := ttlCmd.Val(); ttl < 0 {
		if err := rl.redisClient.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
			rl.logger.ErrorContext(ctx, "Failed to set expiry on rate limit key", "error", err, "key", key)
		}
	}
	return incrCmd.Val() <= rl.windowLimit()
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.extractIP(r)

		var allowed bool
		if rl.redisClient != nil {
			allowed = rl.allowRedis(r, ip)
		} else {
			allowed = rl.getLimiter(ip).Allow()
		}

		if !allowed {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rateLimitWindow.Seconds()))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
