package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bugtracker/internal/handler"
	"bugtracker/internal/model"
	"bugtracker/internal/util"
	"bugtracker/pkg/metrics"
	"bugtracker/pkg/trace"
)

// UserResolver resolves a token's user id to a live account.
type UserResolver interface {
	ResolveUser(ctx context.Context, userID int) (*model.User, error)
}

// TraceMiddleware attaches a trace id to every request, honoring an
// incoming X-Trace-ID header.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		ctx := trace.WithContext(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogMiddleware logs every request with latency and status.
func RequestLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	}
}

// MetricsMiddleware records request duration per route and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// AuthMiddleware verifies the bearer token and loads the account it
// names. Tokens for deleted users are rejected.
func AuthMiddleware(resolver UserResolver, jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := util.ExtractToken(c.Request)
		if tokenStr == "" {
			metrics.IncrementAuthFailure("missing_token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, err := util.ParseJWT(tokenStr, jwtSecret)
		if err != nil {
			metrics.IncrementAuthFailure("invalid_token")
			logger.Warn("Auth: token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := resolver.ResolveUser(c.Request.Context(), claims.UserID)
		if err != nil {
			metrics.IncrementAuthFailure("unknown_user")
			logger.Warn("Auth: token user not found", zap.Int("user_id", claims.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		handler.SetActor(c, user.Summary())
		c.Next()
	}
}
