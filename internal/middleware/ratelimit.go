package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CognitionIES/teamsync/internal/respond"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitPrefix = "ratelimit:"

// RateLimiter - фиксированное окно на клиента. С redis счётчик общий для всех реплик,
// без redis (или при его недоступности) считается в памяти процесса.
type RateLimiter struct {
	requests int
	window   time.Duration
	rdb      *redis.Client
	mu       sync.Mutex
	clients  map[string]*clientWindow
	now      func() time.Time
}

type clientWindow struct {
	count   int
	expires time.Time
}

func NewRateLimiter(requests int, window time.Duration, rdb *redis.Client) *RateLimiter {
	if requests <= 0 || window <= 0 {
		return &RateLimiter{}
	}

	return &RateLimiter{
		requests: requests,
		window:   window,
		rdb:      rdb,
		clients:  make(map[string]*clientWindow),
		now:      time.Now,
	}
}

func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	if r == nil || r.requests == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r.exceeded(req.Context(), clientKey(req)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			respond.Message(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) exceeded(ctx context.Context, key string) bool {
	if r.rdb != nil {
		count, err := r.hitRedis(ctx, key)
		if err == nil {
			return count > int64(r.requests)
		}
		logrus.WithError(err).Warn("redis rate limit unavailable, using local counter")
	}
	return r.hit(key)
}

func (r *RateLimiter) hitRedis(ctx context.Context, key string) (int64, error) {
	redisKey := rateLimitPrefix + key
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, r.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *RateLimiter) hit(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	state, ok := r.clients[key]
	if !ok || now.After(state.expires) {
		r.clients[key] = &clientWindow{
			count:   1,
			expires: now.Add(r.window),
		}
		return false
	}

	if state.count >= r.requests {
		return true
	}

	state.count++
	return false
}

func clientKey(r *http.Request) string {
	if r == nil {
		return "unknown"
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
