package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ctxUserID  = "user_id"
	ctxProfile = "profile"
)

type Middleware struct {
	jwtSecret    []byte
	auth         *usecases.AuthUsecase
	corsOrigin   string
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
	logger       *zap.Logger
}

func NewMiddleware(secret string, auth *usecases.AuthUsecase, corsOrigin string, logger *zap.Logger) *Middleware {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &Middleware{
		jwtSecret:    []byte(secret),
		auth:         auth,
		corsOrigin:   corsOrigin,
		rateLimiters: make(map[string]*rate.Limiter),
		logger:       logger.With(zap.String("component", "http")),
	}
}

// AuthRequired needs a valid token and a live session profile. Logging out
// clears the profile, so tokens issued earlier stop working everywhere.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		userID, _ := claims["user_id"].(string)
		if !ok || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		profile, err := m.auth.Session(c.Request.Context(), userID)
		if errors.Is(err, usecases.ErrSessionExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}
		if err != nil {
			m.logger.Error("session lookup failed", zap.String("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Session store unavailable"})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxProfile, *profile)
		c.Next()
	}
}

// streamRoute is the only route that takes ?access_token=: EventSource cannot
// send headers.
const streamRoute = "/api/whatsapp/stream"

// bearerToken reads the Authorization header, or ?access_token= on the stream route.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c.FullPath() == streamRoute {
		return c.Query("access_token")
	}
	return ""
}

// RequirePermission rejects users whose profile lacks the named flag.
func RequirePermission(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentUser(c)
		if !ok || !profile.Permissions.Allows(name) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
			return
		}
		c.Next()
	}
}

// RateLimitPerUser limits requests based on "user_id" from context (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ctxUserID)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}

		m.mu.Lock()
		limiter, exists := m.rateLimiters[key]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", m.corsOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger writes one line per request.
func (m *Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			m.logger.Warn("request", fields...)
			return
		}
		m.logger.Debug("request", fields...)
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func currentUser(c *gin.Context) (entities.AuthUser, bool) {
	v, ok := c.Get(ctxProfile)
	if !ok {
		return entities.AuthUser{}, false
	}
	profile, ok := v.(entities.AuthUser)
	return profile, ok
}
