package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/manishonc/car-rental/pkg/problem"
)

// Limiter decides whether one more request from key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Window() time.Duration
}

// MemoryLimiter is a sliding-window limiter for a single instance.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Window() time.Duration { return l.window }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	valid := l.recent(key, now)
	if len(valid) >= l.limit {
		l.requests[key] = valid
		return false, nil
	}
	l.requests[key] = append(valid, now)
	return true, nil
}

func (l *MemoryLimiter) recent(key string, now time.Time) []time.Time {
	windowStart := now.Add(-l.window)
	var valid []time.Time
	for _, t := range l.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// Run drops expired entries every minute until ctx is cancelled.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key := range l.requests {
				if valid := l.recent(key, now); len(valid) == 0 {
					delete(l.requests, key)
				} else {
					l.requests[key] = valid
				}
			}
			l.mu.Unlock()
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every instance behind one Redis.
type RedisLimiter struct {
	rdb    *goredis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(rdb *goredis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, now: time.Now}
}

func (l *RedisLimiter) Window() time.Duration { return l.window }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	k := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}

// RateLimit rejects clients over their budget with 429. Limiter errors let the request through.
// Use after chi's RealIP middleware so RemoteAddr carries the client address.
func RateLimit(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	retryAfter := strconv.Itoa(int(l.Window().Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), clientIP(r.RemoteAddr))
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", "err", err)
				ok = true
			}
			if !ok {
				w.Header().Set("Retry-After", retryAfter)
				problem.Write(w, http.StatusTooManyRequests, "Rate Limit Exceeded",
					"Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from an address, handling bracketed IPv6.
func clientIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
