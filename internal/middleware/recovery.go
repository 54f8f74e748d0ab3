package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/logger"
)

// Recovery turns panics into a 500 envelope. CORS headers are set again so
// browsers can read the error; the stack is included in development.
func Recovery(origins []string, development bool) gin.HandlerFunc {
	allowed := originSet(origins)
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := string(debug.Stack())
			logger.Error("Panic recovered", map[string]interface{}{
				"component": "http",
				"panic":     fmt.Sprint(rec),
				"path":      c.Request.URL.Path,
				"stack":     stack,
			})

			setCORSHeaders(c, allowed)
			body := gin.H{
				"status":  "error",
				"message": "Internal server error",
			}
			if development {
				body["data"] = gin.H{"error": fmt.Sprint(rec), "stack": stack}
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
