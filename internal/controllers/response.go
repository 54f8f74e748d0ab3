package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

// redactInternal hides the message of unexpected errors from clients.
var redactInternal bool

// SetProduction switches error redaction on for production deployments.
func SetProduction(production bool) {
	redactInternal = production
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Envelope{Status: "success", Message: message, Data: data})
}

// respondError maps err onto a status code and writes the error envelope.
func respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError(err.Error(), err)
	}

	message := appErr.Message
	if appErr.Code >= http.StatusInternalServerError {
		logger.WithError(err, "controller").WithFields(map[string]interface{}{
			"path":    c.Request.URL.Path,
			"user_id": middleware.CurrentUserID(c),
		}).Error("Request failed")
		if redactInternal {
			message = "Internal server error"
		}
	}

	body := Envelope{Status: "error", Message: message}
	if appErr.Field != "" {
		body.Data = gin.H{"field": appErr.Field}
	}
	c.AbortWithStatusJSON(appErr.Code, body)
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := jsonFieldName(fe.Namespace())
		return apperrors.NewFieldError(field, validationMessage(field, fe))
	}
	return apperrors.NewValidationError("Invalid request body")
}

// jsonFieldName drops the root struct from a namespace like "CaseInput.property.address".
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "urgency", "casestatus", "selfrole", "staffrole", "oneof":
		return field + " has an unsupported value"
	default:
		return field + " is invalid"
	}
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{ID: middleware.CurrentUserID(c), Role: middleware.CurrentRole(c)}
}

func paginationFrom(c *gin.Context) services.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return services.NewPagination(page, limit)
}
