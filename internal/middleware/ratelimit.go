package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig configures the process-wide token bucket. The limit is
// global, not per-client; the API sits behind an upstream that handles
// per-caller fairness.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// rateLimitedBody matches the envelope shape the API handlers write, kept
// as a literal because the reject path must not allocate or fail.
const rateLimitedBody = `{"success":false,"error":{"message":"rate limit exceeded"}}`

// RateLimitMiddleware rejects requests over the configured rate with 429
// and a Retry-After hint.
func RateLimitMiddleware(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	bucket := newTokenBucket(cfg.RPS, cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bucket.take() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(rateLimitedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tokenBucket refills lazily on take. A non-positive rate or burst makes
// the bucket a no-op that admits everything.
type tokenBucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func newTokenBucket(rps float64, burst int) *tokenBucket {
	b := &tokenBucket{last: time.Now()}
	if rps > 0 && burst > 0 {
		b.rate = rps
		b.burst = float64(burst)
		b.tokens = float64(burst)
	}
	return b
}

func (b *tokenBucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rate <= 0 {
		return true
	}

	now := time.Now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.burst, b.tokens+elapsed*b.rate)
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
