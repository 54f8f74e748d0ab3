package services

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/utleieskade/backend/internal/models"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// WriteUsersCSV writes one row per user. Inspectors get an extra expertises column.
func WriteUsersCSV(w io.Writer, role models.UserRole, users []models.User) error {
	header := []string{"id", "firstName", "lastName", "email", "phone", "address", "postalCode", "city", "status", "createdAt"}
	if role == models.RoleInspector {
		header = append(header, "expertises")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, u := range users {
		row := []string{
			u.ID,
			u.FirstName,
			u.LastName,
			u.Email,
			deref(u.Phone),
			deref(u.Address),
			deref(u.PostalCode),
			deref(u.City),
			string(u.Status),
			u.CreatedAt.Format(time.RFC3339),
		}
		if role == models.RoleInspector {
			names := make([]string, 0, len(u.Expertises))
			for _, e := range u.Expertises {
				names = append(names, e.Name)
			}
			row = append(row, strings.Join(names, "; "))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
