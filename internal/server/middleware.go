package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MiddlewareManager manages all middleware components
type MiddlewareManager struct {
	config  *Config
	metrics *Metrics
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewMiddlewareManager creates a new middleware manager
func NewMiddlewareManager(config *Config, metrics *Metrics, logger *zap.Logger) *MiddlewareManager {
	var limiter *rate.Limiter
	if config.EnableRateLimit {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimitRPS), config.RateLimitRPS*2)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MiddlewareManager{
		config:  config,
		metrics: metrics,
		logger:  logger,
		limiter: limiter,
	}
}

// Logger returns an access-log middleware writing to the process logger.
func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		m.logger.Info("http request",
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORS returns a CORS middleware
func (m *MiddlewareManager) CORS() gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	return cors.New(config)
}

// RateLimit returns a rate limiting middleware. Ingestion must never block,
// so over-limit requests are rejected immediately.
func (m *MiddlewareManager) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.limiter != nil && !m.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Metrics returns a metrics collection middleware
func (m *MiddlewareManager) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath()

		m.metrics.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
		m.metrics.RequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()

		if status >= 400 {
			m.metrics.ErrorsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
		}
	}
}

// Security returns a security headers middleware
func (m *MiddlewareManager) Security() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// Auth returns a JWT authentication middleware
func (m *MiddlewareManager) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization header format",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Set("user", claims["sub"])
		}

		c.Next()
	}
}
