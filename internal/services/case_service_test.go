package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/realtime"
)

func TestCreateCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	in := sampleCaseInput()
	in.Description = "<b>Vann</b> på gulvet"
	c, err := env.svc.Cases.Create(ctx, tenant, in)
	require.NoError(t, err)

	assert.Equal(t, models.CaseStatusPending, c.Status)
	assert.True(t, strings.HasPrefix(c.CaseNumber, "US-"))
	assert.Equal(t, "Vann på gulvet", c.Description)
	require.NotNil(t, c.Property)
	assert.Equal(t, "Norway", c.Property.Country)
	require.Len(t, c.Damages, 1)
	assert.Len(t, c.Damages[0].Photos, 1)

	timeline, err := env.svc.Cases.Timeline(ctx, tenant, c.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, models.EventCaseCreated, timeline[0].EventType)
}

func TestCreateCase_ReusesProperty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	first, err := env.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)

	in := sampleCaseInput()
	in.Property.Address = "STORGATA 1"
	in.Property.City = "oslo"
	second, err := env.svc.Cases.Create(ctx, tenant, in)
	require.NoError(t, err)

	assert.Equal(t, first.PropertyID, second.PropertyID)
	assert.NotEqual(t, first.CaseNumber, second.CaseNumber)
}

func TestCaseVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	pending, err := env.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)
	open := env.openCase(t, tenant, admin)

	_, err = env.svc.Cases.Get(ctx, other, open.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	_, err = env.svc.Cases.Get(ctx, inspector, open.ID)
	assert.NoError(t, err, "inspectors see open cases")
	_, err = env.svc.Cases.Get(ctx, inspector, pending.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	page, err := env.svc.Cases.List(ctx, tenant, CaseFilter{}, NewPagination(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = env.svc.Cases.List(ctx, other, CaseFilter{}, NewPagination(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)

	page, err = env.svc.Cases.List(ctx, admin, CaseFilter{Status: models.CaseStatusOpen}, NewPagination(1, 20))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = env.svc.Cases.List(ctx, admin, CaseFilter{SortBy: "tenant_id"}, NewPagination(1, 20))
	requireAppError(t, err, http.StatusBadRequest, "sortBy")
}

func TestInspectorLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	c := env.openCase(t, tenant, admin)

	claimed, err := env.svc.Cases.Claim(ctx, inspector, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusActive, claimed.Status)
	require.NotNil(t, claimed.InspectorID)
	assert.Equal(t, inspector.ID, *claimed.InspectorID)

	_, err = env.svc.Cases.Resume(ctx, inspector, c.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	held, err := env.svc.Cases.Hold(ctx, inspector, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusOnHold, held.Status)

	resumed, err := env.svc.Cases.Resume(ctx, inspector, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusActive, resumed.Status)

	done, err := env.svc.Cases.Complete(ctx, inspector, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = env.svc.Cases.Hold(ctx, inspector, c.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	closed, err := env.svc.Cases.ChangeStatus(ctx, admin, c.ID, models.CaseStatusClosed)
	require.NoError(t, err)
	assert.NotNil(t, closed.ClosedAt)

	timeline, err := env.svc.Cases.Timeline(ctx, tenant, c.ID)
	require.NoError(t, err)
	events := make([]models.TimelineEvent, 0, len(timeline))
	for _, entry := range timeline {
		events = append(events, entry.EventType)
	}
	assert.Equal(t, []models.TimelineEvent{
		models.EventCaseCreated,
		models.EventPaymentReceived,
		models.EventCaseClaimed,
		models.EventCaseOnHold,
		models.EventCaseResumed,
		models.EventCaseCompleted,
		models.EventCaseClosed,
	}, events)

	// The tenant hears about every change after creation.
	assert.Equal(t, 6, env.emitter.count(tenant.ID, realtime.EventNotification))
}

func TestClaim_AssignedToSomeoneElse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	first := env.addUser(t, models.RoleInspector, "per@example.no")
	second := env.addUser(t, models.RoleInspector, "pal@example.no")
	c := env.openCase(t, tenant, admin)

	_, err := env.svc.Cases.Claim(ctx, first, c.ID)
	require.NoError(t, err)

	_, err = env.svc.Cases.Claim(ctx, second, c.ID)
	requireAppError(t, err, http.StatusConflict, "")

	_, err = env.svc.Cases.Release(ctx, second, c.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	released, err := env.svc.Cases.Release(ctx, first, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusOpen, released.Status)
	assert.Nil(t, released.InspectorID)

	_, err = env.svc.Cases.Claim(ctx, second, c.ID)
	require.NoError(t, err)
}

func TestClaim_PreassignedInspector(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	assigned := env.addUser(t, models.RoleInspector, "per@example.no")
	other := env.addUser(t, models.RoleInspector, "pal@example.no")
	c := env.openCase(t, tenant, admin)

	updated, err := env.svc.Cases.Assign(ctx, admin, c.ID, assigned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusOpen, updated.Status)
	_, ok := env.mailer.Last("per@example.no")
	assert.True(t, ok)

	_, err = env.svc.Cases.Claim(ctx, other, c.ID)
	requireAppError(t, err, http.StatusConflict, "")

	_, err = env.svc.Cases.Claim(ctx, assigned, c.ID)
	require.NoError(t, err)
}

func TestAssign_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	c := env.openCase(t, tenant, admin)

	_, err := env.svc.Cases.Assign(ctx, admin, c.ID, tenant.ID)
	requireAppError(t, err, http.StatusNotFound, "")
	_, err = env.svc.Cases.Assign(ctx, admin, c.ID, "missing")
	requireAppError(t, err, http.StatusNotFound, "")

	var stored models.Case
	require.NoError(t, env.db.First(&stored, "id = ?", c.ID).Error)
	assert.Nil(t, stored.InspectorID)
	assert.Equal(t, models.CaseStatusOpen, stored.Status)

	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	_, err = env.svc.Cases.Cancel(ctx, tenant, c.ID, "Feil adresse")
	require.NoError(t, err)
	_, err = env.svc.Cases.Assign(ctx, admin, c.ID, inspector.ID)
	requireAppError(t, err, http.StatusBadRequest, "")
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")
	c := env.openCase(t, tenant, admin)

	_, err := env.svc.Cases.Cancel(ctx, tenant, c.ID, "  ")
	requireAppError(t, err, http.StatusBadRequest, "cancellationReason")

	_, err = env.svc.Cases.Cancel(ctx, other, c.ID, "Ikke min")
	requireAppError(t, err, http.StatusForbidden, "")

	cancelled, err := env.svc.Cases.Cancel(ctx, tenant, c.ID, "Skaden er reparert")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "Skaden er reparert", *cancelled.CancellationReason)
	assert.Equal(t, 1, countEvents(t, env, tenant, c.ID, models.EventCaseCancelled))

	_, err = env.svc.Cases.Cancel(ctx, tenant, c.ID, "Igjen")
	requireAppError(t, err, http.StatusBadRequest, "")
	assert.Equal(t, 1, countEvents(t, env, tenant, c.ID, models.EventCaseCancelled))
}

func countEvents(t *testing.T, env *testEnv, actor Actor, caseID string, event models.TimelineEvent) int {
	t.Helper()
	timeline, err := env.svc.Cases.Timeline(context.Background(), actor, caseID)
	require.NoError(t, err)
	n := 0
	for _, e := range timeline {
		if e.EventType == event {
			n++
		}
	}
	return n
}

func TestChangeStatus_Rules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	c, err := env.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)

	_, err = env.svc.Cases.ChangeStatus(ctx, admin, c.ID, "archived")
	requireAppError(t, err, http.StatusBadRequest, "status")

	_, err = env.svc.Cases.ChangeStatus(ctx, admin, c.ID, models.CaseStatusCompleted)
	requireAppError(t, err, http.StatusBadRequest, "")

	_, err = env.svc.Cases.ChangeStatus(ctx, admin, c.ID, models.CaseStatusPending)
	requireAppError(t, err, http.StatusBadRequest, "")

	logs, err := env.svc.Actions.List(ctx, ActionLogFilter{CaseID: c.ID}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 0, logs.Total)

	_, err = env.svc.Cases.ChangeStatus(ctx, admin, c.ID, models.CaseStatusOpen)
	require.NoError(t, err)

	logs, err = env.svc.Actions.List(ctx, ActionLogFilter{CaseID: c.ID}, NewPagination(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, logs.Total)
	assert.Equal(t, models.ActionStatusChanged, logs.Items[0].ActionType)
}
