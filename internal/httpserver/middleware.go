package httpserver

import (
	"strings"
	"sync"
	"time"

	"agrofunnel/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxSessionID    = "session_id"

	visitorIdleTTL = 3 * time.Minute
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		if id := c.GetString(ctxSessionID); id != "" {
			fields = append(fields, zap.String("session_id", id))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(ctxRequestID)),
		)
		writeError(c, errInternal)
	})
}

// sessionAuth resolves the bearer token to a session id.
func sessionAuth(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(c, domain.NewError(domain.KindUnauthenticated, "missing bearer token"))
			c.Abort()
			return
		}
		id, err := sessions.Authenticate(token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxSessionID, id)
		c.Next()
	}
}

// customerScope admits only sessions bound to the customer in the path.
func customerScope(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Load(c.Request.Context(), c.GetString(ctxSessionID))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		if !sess.HasCustomer() || *sess.CustomerID != c.Param("id") {
			writeError(c, domain.NewError(domain.KindUnauthenticated, "this session is not identified as customer %s", c.Param("id")))
			c.Abort()
			return
		}
		c.Next()
	}
}

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(rps, burst int) *rateLimiter {
	if burst < 1 {
		burst = rps
	}
	return &rateLimiter{
		visitors:  map[string]*visitor{},
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) > time.Minute {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTTL {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			writeError(c, errRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
