package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitWindow is 120 seconds
	RateLimitWindow = 120 * time.Second
	// RateLimitMaxRequests is the number of matching calls allowed per window
	RateLimitMaxRequests = 30
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = time.Hour
)

// RedisRateLimiter counts requests per IP in Redis so the limit holds across
// instances. An IP over the limit is blocked for BlockedIPDuration. When
// Redis is unreachable requests are let through.
type RedisRateLimiter struct {
	client   *redis.Client
	window   time.Duration
	max      int
	blockFor time.Duration
	logger   logger.Logger
}

func NewRedisRateLimiter(client *redis.Client, log logger.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		window:   RateLimitWindow,
		max:      RateLimitMaxRequests,
		blockFor: BlockedIPDuration,
		logger:   log.WithFields(map[string]interface{}{"component": "ratelimit"}),
	}
}

func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.client == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := clientip.RealClientIP(r)

		blockedKey := BlockedIPKeyPrefix + ip
		isBlocked, err := l.client.Exists(ctx, blockedKey).Result()
		if err == nil && isBlocked > 0 {
			tooManyRequests(w, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
			return
		}

		key := RateLimitKeyPrefix + ip
		count, err := l.client.Incr(ctx, key).Result()
		if err != nil {
			l.logger.Warn("rate limit check failed, allowing request", map[string]interface{}{"error": err})
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			l.client.Expire(ctx, key, l.window)
		}

		if count > int64(l.max) {
			if err := l.client.Set(ctx, blockedKey, "1", l.blockFor).Err(); err != nil {
				l.logger.Warn("failed to block ip", map[string]interface{}{"ip": ip, "error": err})
			} else {
				l.logger.Warn("ip blocked for excessive requests", map[string]interface{}{"ip": ip, "count": count})
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.","retry_after":%d}`, int(l.window.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(l.max)-count, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(l.window).Unix(), 10))

		next.ServeHTTP(w, r)
	})
}
