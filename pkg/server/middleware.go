package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GoliasVictor/grpg/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// recoveryMiddleware turns a handler panic into a logged 500.
func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered in HTTP handler",
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(requestIDKey),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// requestIDMiddleware reuses an incoming X-Request-ID or assigns a UUID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware logs every request and records its Prometheus metrics.
// The route template is used as the path label to bound cardinality.
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)

		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration.Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
	}
}

// corsMiddleware answers preflight requests and tags responses for the
// allowed origins. "*" allows any origin.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := false
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || set[origin]) {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", requestIDHeader}, ", "))
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter enforces a per-client token bucket keyed by remote address.
type rateLimiter struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	return &rateLimiter{cfg: cfg, clients: map[string]*clientLimiter{}, lastSweep: time.Now()}
}

func (rl *rateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > 5*time.Minute {
		for key, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > 10*time.Minute {
				delete(rl.clients, key)
			}
		}
		rl.lastSweep = now
	}

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.RemoteIP())

		reservation := limiter.Reserve()
		if !reservation.OK() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}
