// Package apperrors defines the error taxonomy shared by services and controllers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError is an error with an HTTP status attached.
type AppError struct {
	Type    ErrorType
	Message string
	Code    int
	// Field names the offending input field, if any.
	Field string
	Err   error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Code: http.StatusBadRequest}
}

// NewFieldError is a validation error tied to one input field.
func NewFieldError(field, message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Code: http.StatusBadRequest, Field: field}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Code: http.StatusNotFound}
}

// NewConflictError reports a uniqueness or state conflict. Duplicates surface as 400.
func NewConflictError(field, message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, Code: http.StatusBadRequest, Field: field}
}

// NewStateConflictError reports a resource owned by someone else or locked by concurrent work.
func NewStateConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, Code: http.StatusConflict}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message, Code: http.StatusUnauthorized}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Type: ErrorTypeForbidden, Message: message, Code: http.StatusForbidden}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Code: http.StatusServiceUnavailable}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Code: http.StatusInternalServerError, Err: err}
}

// FromGorm converts ORM errors into application errors. entity is used in the message.
func FromGorm(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewNotFoundError(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return NewConflictError("", entity+" already exists")
	default:
		return NewInternalError("failed to access "+entity, err)
	}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 application error.
func IsNotFound(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == ErrorTypeNotFound
}
