package http

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lifehub/authapi/internal/auth"
	"github.com/lifehub/authapi/internal/metrics"
)

// RequestLogger logs one line per request. Health and metrics scrapes are
// skipped.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(log, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		SkipPaths:  []string{"/metrics"},
		Context:    requestFields,
	})
}

// requestFields adds the caller's user id once the session middleware has
// resolved it. Bodies are never logged: they carry passwords.
func requestFields(c *gin.Context) []zapcore.Field {
	if claims := auth.CurrentUser(c); claims != nil {
		return []zapcore.Field{zap.Uint64("user_id", claims.ID)}
	}
	return nil
}

// Recovery turns panics into a generic 500 and logs them with a stack trace.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(log, true, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	})
}

// RequestMetrics records request durations by route template.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
