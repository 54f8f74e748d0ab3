package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// Pagination is a normalised page request.
type Pagination struct {
	Page  int
	Limit int
}

const maxPageSize = 100

// NewPagination clamps page and limit to sane values.
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of results.
type Page[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// SortSpec maps public sort keys to columns.
type SortSpec struct {
	Allowed map[string]string
	Default string
}

// Clause resolves sortBy/order into an ORDER BY clause. Unknown keys are rejected.
func (s SortSpec) Clause(sortBy, order string) (string, error) {
	column := s.Allowed[s.Default]
	if sortBy != "" {
		col, ok := s.Allowed[sortBy]
		if !ok {
			keys := make([]string, 0, len(s.Allowed))
			for k := range s.Allowed {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return "", apperrors.NewFieldError("sortBy", fmt.Sprintf("sortBy must be one of: %s", strings.Join(keys, ", ")))
		}
		column = col
	}

	switch strings.ToLower(order) {
	case "", "desc":
		return column + " DESC", nil
	case "asc":
		return column + " ASC", nil
	default:
		return "", apperrors.NewFieldError("order", "order must be asc or desc")
	}
}

var textPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from user-supplied free text.
func CleanText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// likePattern wraps a lower-cased search term for a LIKE on LOWER(column).
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

func strPtr(s string) *string {
	return &s
}
