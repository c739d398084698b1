package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/infrastructure/httpserver/helpers"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware is a per-client-IP token bucket. Idle buckets are
// dropped lazily while serving requests.
type RateLimitMiddleware struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	r         rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	logger    *logrus.Logger
}

func NewRateLimitMiddleware(r rate.Limit, burst int, logger *logrus.Logger) *RateLimitMiddleware {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitMiddleware{
		limiters:  make(map[string]*ipLimiter),
		r:         r,
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
		logger:    logger,
	}
}

func (rl *RateLimitMiddleware) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > limiterSweepEvery {
		for k, v := range rl.limiters {
			if now.Sub(v.lastSeen) > limiterIdleAfter {
				delete(rl.limiters, k)
			}
		}
		rl.lastSweep = now
	}

	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

// Handler rejects requests beyond the bucket with 429. A non-positive rate disables limiting.
func (rl *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.r <= 0 {
				return next(c)
			}
			ip := c.RealIP()
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			if !rl.get(ip).AllowN(rl.now(), 1) {
				if rl.logger != nil {
					rl.logger.WithFields(logrus.Fields{"ip": ip, "path": c.Path()}).Info("auth rate limit exceeded")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, helpers.ErrorBody{Kind: "rate_limited", Message: "too many requests"})
			}
			return next(c)
		}
	}
}
