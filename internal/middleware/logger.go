package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/utleieskade/backend/internal/logger"
)

// RequestLogger writes one log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithContext(map[string]interface{}{
			"component": "http",
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
			"user_id":   CurrentUserID(c),
		})

		switch {
		case status >= 500:
			entry.Log(logrus.ErrorLevel, "[API] request failed")
		case status >= 400:
			entry.Log(logrus.WarnLevel, "[API] request rejected")
		default:
			entry.Log(logrus.InfoLevel, "[API] request handled")
		}
	}
}
