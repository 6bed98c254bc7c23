package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
	"sponsor-portal/internal/ports"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginLimiter throttles login attempts per client IP.
type LoginLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter

	onThrottle func()
}

func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &LoginLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// OnThrottle registers a hook run for every rejected attempt.
func (l *LoginLimiter) OnThrottle(fn func()) { l.onThrottle = fn }

func (l *LoginLimiter) Middleware(log ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if l.allow(ip) {
				return next(c)
			}
			if l.onThrottle != nil {
				l.onThrottle()
			}
			log.Warn(c.Request().Context(), "login rate limit exceeded", "ip", ip)
			c.Response().Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many login attempts, try again later"})
		}
	}
}

// retryAfterSeconds is the time for one attempt to be refilled.
func (l *LoginLimiter) retryAfterSeconds() int {
	return max((60+l.burst-1)/l.burst, 1)
}

func (l *LoginLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastAccess = now
	return cl.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle for longer than ttl and returns how many went.
func (l *LoginLimiter) Sweep(ttl time.Duration) int {
	cutoff := l.now().Add(-ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, cl := range l.clients {
		if cl.lastAccess.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
