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

func TestEarnings_CountsCompletedCases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	env.completedCase(t, tenant, admin, inspector)
	env.completedCase(t, tenant, admin, inspector)
	active := env.openCase(t, tenant, admin)
	_, err := env.svc.Cases.Claim(ctx, inspector, active.ID)
	require.NoError(t, err)

	e, err := env.svc.Payouts.Earnings(ctx, inspector.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, e.CompletedCases)
	assert.True(t, e.Gross.Equal(decimal.NewFromInt(1800)), e.Gross.String())
	assert.True(t, e.Available.Equal(e.Gross))
}

func TestPayoutRequest_BalanceAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	env.completedCase(t, tenant, admin, inspector)

	_, err := env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(500), "feil")
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(901), testPassword)
	requireAppError(t, err, http.StatusBadRequest, "amount")

	_, err = env.svc.Payouts.Request(ctx, inspector, decimal.Zero, testPassword)
	requireAppError(t, err, http.StatusBadRequest, "amount")

	first, err := env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(600), testPassword)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusRequested, first.Status)

	// Open requests hold back the balance.
	_, err = env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(400), testPassword)
	requireAppError(t, err, http.StatusBadRequest, "amount")

	e, err := env.svc.Payouts.Earnings(ctx, inspector.ID)
	require.NoError(t, err)
	assert.True(t, e.Pending.Equal(decimal.NewFromInt(600)), e.Pending.String())
	assert.True(t, e.Available.Equal(decimal.NewFromInt(300)), e.Available.String())
}

func TestPayoutDecisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	env.completedCase(t, tenant, admin, inspector)

	approved, err := env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(500), testPassword)
	require.NoError(t, err)
	rejected, err := env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(400), testPassword)
	require.NoError(t, err)

	got, err := env.svc.Payouts.Approve(ctx, admin, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusProcessed, got.Status)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, admin.ID, *got.DecidedBy)

	_, err = env.svc.Payouts.Reject(ctx, admin, approved.ID, "For sent")
	requireAppError(t, err, http.StatusBadRequest, "")

	_, err = env.svc.Payouts.Reject(ctx, admin, rejected.ID, "")
	requireAppError(t, err, http.StatusBadRequest, "reason")
	got, err = env.svc.Payouts.Reject(ctx, admin, rejected.ID, "Mangler kontonummer")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusRejected, got.Status)

	// Rejected payouts return to the available balance.
	e, err := env.svc.Payouts.Earnings(ctx, inspector.ID)
	require.NoError(t, err)
	assert.True(t, e.PaidOut.Equal(decimal.NewFromInt(500)), e.PaidOut.String())
	assert.True(t, e.Pending.IsZero(), e.Pending.String())
	assert.True(t, e.Available.Equal(decimal.NewFromInt(400)), e.Available.String())

	msg, ok := env.mailer.Last("per@example.no")
	require.True(t, ok)
	assert.NotEmpty(t, msg.Subject)

	page, err := env.svc.Payouts.List(ctx, PayoutFilter{InspectorID: inspector.ID, Status: models.PayoutStatusProcessed}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	statement, err := env.svc.Payouts.Statement(ctx, inspector.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, statement.CompletedCases)
	assert.Len(t, statement.Payouts, 2)

	// The rejected amount can be requested again as a fresh row.
	again, err := env.svc.Payouts.Request(ctx, inspector, decimal.NewFromInt(400), testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, rejected.ID, again.ID)
	assert.Equal(t, models.PayoutStatusRequested, again.Status)
	assert.Nil(t, again.RejectionReason)

	var old models.InspectorPayment
	require.NoError(t, env.db.First(&old, "id = ?", rejected.ID).Error)
	assert.Equal(t, models.PayoutStatusRejected, old.Status)
	require.NotNil(t, old.RejectionReason)
	assert.Equal(t, "Mangler kontonummer", *old.RejectionReason)
}
