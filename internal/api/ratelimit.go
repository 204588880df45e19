package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/copilot/internal/api/handlers"
	"github.com/wonny/copilot/internal/metrics"
	"github.com/wonny/copilot/pkg/logger"
	"github.com/wonny/copilot/pkg/redis"
)

// ClientLimiter decides whether one more request of a client is allowed
type ClientLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

// RedisLimiter shares a sliding window across API instances
type RedisLimiter struct {
	limiter *redis.RateLimiter
	limit   int
	window  time.Duration
}

// NewRedisLimiter allows limit requests per window per client
func NewRedisLimiter(limiter *redis.RateLimiter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{limiter: limiter, limit: limit, window: window}
}

// Allow implements ClientLimiter
func (l *RedisLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	allowed, _, err := l.limiter.Allow(ctx, redis.ClientRateLimit(clientID, l.limit, l.window))
	return allowed, err
}

// LocalLimiter is a per-process token bucket per client (Redis 비활성 시 사용)
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLocalLimiter creates a token bucket limiter of rps with burst per client
func NewLocalLimiter(rps float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow implements ClientLimiter
func (l *LocalLimiter) Allow(_ context.Context, clientID string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[clientID]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[clientID] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// clientID identifies the caller by the first X-Forwarded-For hop or the remote address
func clientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware rejects requests over the per-client limit with 429.
// Limiter failures let the request through.
func rateLimitMiddleware(limiter ClientLimiter, reg *metrics.Registry, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := clientID(r)

			allowed, err := limiter.Allow(r.Context(), id)
			if err != nil {
				log.WithError(err).WithField("client", id).Warn("Rate limiter unavailable, allowing request")
				allowed = true
			}

			if !allowed {
				reg.RecordRateLimited()
				w.Header().Set("Retry-After", "1")
				handlers.RespondError(w, http.StatusTooManyRequests, handlers.CodeRateLimited, "Too many requests", "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
