package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Limiter throttles API clients by address. A process-local token bucket always
// applies; the Redis sliding window is added when Redis is enabled so that limits
// hold across replicas.
type Limiter struct {
	mu        sync.Mutex
	local     map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time

	rps    rate.Limit
	burst  int
	shared *redis.RateLimiter
	logger *logger.Logger
}

type clientLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// clients idle longer than this are forgotten; a returning client starts a full bucket
const limiterIdleTTL = 10 * time.Minute

// NewLimiter creates a per-client limiter; shared may be nil
func NewLimiter(rps float64, burst int, shared *redis.RateLimiter, log *logger.Logger) *Limiter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Limiter{
		local:  make(map[string]*clientLimiter),
		now:    time.Now,
		rps:    rate.Limit(rps),
		burst:  burst,
		shared: shared,
		logger: log,
	}
}

func (l *Limiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for addr, c := range l.local {
			if now.Sub(c.seen) >= limiterIdleTTL {
				delete(l.local, addr)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.local[client]
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.local[client] = c
	}
	c.seen = now
	return c.lim
}

// clients returns the number of tracked client addresses
func (l *Limiter) clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.local)
}

// Middleware rejects requests over the limit with 429
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)

		if !l.limiterFor(client).Allow() {
			tooManyRequests(w, 0)
			return
		}

		if l.shared != nil && l.shared.Enabled() {
			allowed, remaining, err := l.shared.Allow(r.Context(), redis.APIRateLimit(client))
			if err != nil {
				// fail open
				l.logger.WithError(err).Warn("Shared rate limit check failed")
			} else if !allowed {
				tooManyRequests(w, remaining)
				return
			} else {
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}
		}

		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, remaining int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "Rate limit exceeded",
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
