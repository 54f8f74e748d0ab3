package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/models"
)

func sampleReport() ReportInput {
	return ReportInput{
		Notes: "Fuktskade i baderomsgulv",
		Items: []AssessmentItemInput{{
			Description: "Nytt gulvbelegg",
			Unit:        "m2",
			Quantity:    decimal.NewFromInt(6),
			UnitPrice:   decimal.RequireFromString("450.50"),
			Hours:       decimal.NewFromInt(4),
			HourlyRate:  decimal.NewFromInt(750),
			MaterialSum: decimal.NewFromInt(2703),
			LaborSum:    decimal.NewFromInt(3000),
			Total:       decimal.NewFromInt(5703),
		}},
		Summary: &AssessmentSummaryInput{
			TotalHours:  decimal.NewFromInt(4),
			MaterialSum: decimal.NewFromInt(2703),
			LaborSum:    decimal.NewFromInt(3000),
			Subtotal:    decimal.NewFromInt(5703),
			VAT:         decimal.RequireFromString("1425.75"),
			Total:       decimal.RequireFromString("7128.75"),
		},
		Photos: []ReportPhotoInput{{URL: "http://localhost:8080/files/2026/01/b.jpg", Caption: "Gulv"}},
	}
}

func TestSubmitReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	other := env.addUser(t, models.RoleInspector, "pal@example.no")

	active := env.openCase(t, tenant, admin)
	_, err := env.svc.Cases.Claim(ctx, inspector, active.ID)
	require.NoError(t, err)
	_, err = env.svc.Reports.Submit(ctx, inspector, active.ID, sampleReport())
	requireAppError(t, err, http.StatusBadRequest, "")

	c := env.completedCase(t, tenant, admin, inspector)
	_, err = env.svc.Reports.Submit(ctx, other, c.ID, sampleReport())
	requireAppError(t, err, http.StatusForbidden, "")

	report, err := env.svc.Reports.Submit(ctx, inspector, c.ID, sampleReport())
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	require.NotNil(t, report.Summary)
	assert.True(t, report.Summary.Total.Equal(decimal.RequireFromString("7128.75")), report.Summary.Total.String())
	assert.Len(t, report.Photos, 1)

	_, err = env.svc.Reports.Submit(ctx, inspector, c.ID, sampleReport())
	requireAppError(t, err, http.StatusBadRequest, "")

	fromTenant, err := env.svc.Reports.ForCase(ctx, tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, fromTenant.ID)

	_, err = env.svc.Reports.ForCase(ctx, other, c.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	count, err := env.svc.Notifications.UnreadCount(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestReportForCase_NotYetSubmitted(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	c := env.openCase(t, tenant, admin)

	_, err := env.svc.Reports.ForCase(context.Background(), tenant, c.ID)
	requireAppError(t, err, http.StatusNotFound, "")
}
