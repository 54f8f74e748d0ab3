package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/models"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextElevated = "elevated"
)

func abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"status":  "error",
		"message": message,
	})
}

// BearerToken extracts the token from an Authorization header value.
// ok is false when the header is present but not a bearer credential.
func BearerToken(header string) (token string, ok bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Authenticate requires a valid bearer token and stores its claims on the context.
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			abort(c, http.StatusBadRequest, "Invalid authorization header format")
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextElevated, claims.Elevated)
		c.Next()
	}
}

// RequireRoles rejects identities whose role is not listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

// RequireStaff allows admins and sub-admins.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSubAdmin)
}

// RequireElevated only admits tokens issued by OTP verification.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextElevated) {
			abort(c, http.StatusForbidden, "This action requires OTP verification")
			return
		}
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func CurrentRole(c *gin.Context) models.UserRole {
	if role, ok := c.Get(ContextUserRole); ok {
		if r, ok := role.(models.UserRole); ok {
			return r
		}
	}
	return ""
}
