package httpx

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of a rate-limit check. RetryAfter is set when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter answers "may identifier spend one request from bucket now".
type Limiter interface {
	Check(ctx context.Context, bucket, identifier string) (Decision, error)
}

// MemoryLimiter is a per-process token bucket limiter keyed by bucket and identifier.
// Use RedisLimiter when several instances serve the same traffic.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const memorySweepThreshold = 10000

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: map[string]*memoryEntry{},
	}
}

func (l *MemoryLimiter) Check(_ context.Context, bucket, identifier string) (Decision, error) {
	now := l.now()
	key := bucket + ":" + identifier

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= memorySweepThreshold {
		l.sweep(now)
	}
	e := l.entries[key]
	if e == nil {
		e = &memoryEntry{lim: rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)}
		l.entries[key] = e
	}
	e.lastSeen = now

	res := e.lim.ReserveN(now, 1)
	if !res.OK() {
		return Decision{Allowed: false, RetryAfter: l.window}, nil
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.window {
			delete(l.entries, k)
		}
	}
}

// RateLimit rejects requests over the bucket's budget with 429 and a Retry-After header.
// When the limiter itself fails, failOpen decides whether the request is served.
func RateLimit(l Limiter, bucket string, logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Check(r.Context(), bucket, clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter error", "err", err, "bucket", bucket)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			}
			if !d.Allowed {
				w.Header().Set("Retry-After", RetryAfterSeconds(d.RetryAfter))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RetryAfterSeconds renders d as a Retry-After value, rounded up to whole seconds (minimum 1).
func RetryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
