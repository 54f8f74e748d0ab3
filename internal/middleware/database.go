package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/apperrors"
)

// ReadinessChecker reports whether the database has answered a ping.
type ReadinessChecker interface {
	Ready() bool
}

var errStarting = apperrors.NewUnavailableError("Service is starting, please retry shortly")

// RequireDatabase answers 503 until the database is reachable.
func RequireDatabase(db ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !db.Ready() {
			c.Header("Retry-After", "5")
			abort(c, errStarting.Code, errStarting.Message)
			return
		}
		c.Next()
	}
}
