package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// setCORSHeaders echoes origin back when it is on the allow-list.
func setCORSHeaders(c *gin.Context, allowed map[string]bool) {
	origin := c.GetHeader("Origin")
	if origin == "" || !allowed[origin] {
		return
	}
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	h.Set("Access-Control-Max-Age", "86400")
	h.Add("Vary", "Origin")
}

func originSet(origins []string) map[string]bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return allowed
}

// CORS restricts cross-origin access to the configured origins.
func CORS(origins []string) gin.HandlerFunc {
	allowed := originSet(origins)
	return func(c *gin.Context) {
		setCORSHeaders(c, allowed)

		if c.Request.Method == http.MethodOptions {
			if !allowed[c.GetHeader("Origin")] {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
