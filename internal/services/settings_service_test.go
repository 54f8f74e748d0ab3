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

func TestSettings_GetCreatesDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	settings, err := env.svc.Settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformSettingsID, settings.ID)
	assert.True(t, settings.InspectionPrice.Equal(decimal.NewFromInt(1500)))

	_, err = env.svc.Settings.Get(ctx)
	require.NoError(t, err)
	var rows int64
	require.NoError(t, env.db.Model(&models.PlatformSettings{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestSettings_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")

	price := decimal.NewFromInt(1990)
	days := 14
	updated, err := env.svc.Settings.Update(ctx, admin, SettingsUpdate{InspectionPrice: &price, ReportDeadlineDays: &days})
	require.NoError(t, err)
	assert.True(t, updated.InspectionPrice.Equal(price))
	assert.Equal(t, 14, updated.ReportDeadlineDays)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, admin.ID, *updated.UpdatedBy)

	// New intents pick up the new price.
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	intent, err := env.svc.Payments.CreateIntent(ctx, tenant, nil, "")
	require.NoError(t, err)
	assert.True(t, intent.Amount.Equal(price), intent.Amount.String())

	logs, err := env.svc.Actions.List(ctx, ActionLogFilter{AdminID: admin.ID}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, logs.Total)
}

func TestExpertises(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	require.NoError(t, env.svc.Expertises.EnsureDefaults(ctx, []string{"Vannskade", "Muggsopp"}))
	require.NoError(t, env.svc.Expertises.EnsureDefaults(ctx, []string{"Vannskade"}))

	list, err := env.svc.Expertises.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Muggsopp", list[0].Name)

	_, err = env.svc.Expertises.Create(ctx, "Vannskade", "")
	requireAppError(t, err, http.StatusBadRequest, "name")
	_, err = env.svc.Expertises.Create(ctx, " ", "")
	requireAppError(t, err, http.StatusBadRequest, "name")

	user, err := env.svc.Users.SetExpertises(ctx, inspector.ID, []string{list[0].ID, list[1].ID, list[0].ID})
	require.NoError(t, err)
	assert.Len(t, user.Expertises, 2)

	require.NoError(t, env.svc.Expertises.Delete(ctx, list[0].ID))
	user, err = env.svc.Users.Get(ctx, inspector.ID)
	require.NoError(t, err)
	require.Len(t, user.Expertises, 1)
	assert.Equal(t, "Vannskade", user.Expertises[0].Name)

	err = env.svc.Expertises.Delete(ctx, list[0].ID)
	requireAppError(t, err, http.StatusNotFound, "")
}
