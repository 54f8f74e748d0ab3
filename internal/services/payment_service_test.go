package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/payments"
)

// paidCase pays for a new case through the offline gateway.
func (e *testEnv) paidCase(t *testing.T, tenant Actor) *ConfirmResult {
	t.Helper()
	ctx := context.Background()
	intent, err := e.svc.Payments.CreateIntent(ctx, tenant, nil, "")
	require.NoError(t, err)
	in := sampleCaseInput()
	res, err := e.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	require.NoError(t, err)
	return res
}

func TestCreateIntent_UsesInspectionPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	intent, err := env.svc.Payments.CreateIntent(ctx, tenant, nil, "")
	require.NoError(t, err)
	assert.True(t, intent.Amount.Equal(decimal.NewFromInt(1500)), intent.Amount.String())
	assert.Equal(t, "nok", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)

	custom := decimal.NewFromInt(250)
	intent, err = env.svc.Payments.CreateIntent(ctx, tenant, &custom, "")
	require.NoError(t, err)
	assert.True(t, intent.Amount.Equal(custom))

	zero := decimal.Zero
	_, err = env.svc.Payments.CreateIntent(ctx, tenant, &zero, "")
	requireAppError(t, err, http.StatusBadRequest, "amount")
}

func TestConfirm_CreatesOpenCase(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	res := env.paidCase(t, tenant)
	assert.Equal(t, models.CaseStatusOpen, res.Case.Status)
	assert.Equal(t, models.PaymentStatusProcessed, res.Payment.Status)
	require.NotNil(t, res.Payment.CaseID)
	assert.Equal(t, res.Case.ID, *res.Payment.CaseID)
	assert.Len(t, res.Case.Damages, 1)
}

func TestConfirm_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	intent, err := env.svc.Payments.CreateIntent(ctx, tenant, nil, "")
	require.NoError(t, err)
	in := sampleCaseInput()
	_, err = env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	require.NoError(t, err)

	_, err = env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	requireAppError(t, err, http.StatusBadRequest, "paymentIntentId")

	var cases, paid int64
	require.NoError(t, env.db.Model(&models.Case{}).Count(&cases).Error)
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&paid).Error)
	assert.EqualValues(t, 1, cases)
	assert.EqualValues(t, 1, paid)
}

func TestConfirm_ExistingPendingCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")

	c, err := env.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)

	intent, err := env.svc.Payments.CreateIntent(ctx, other, nil, c.ID)
	require.NoError(t, err)
	_, err = env.svc.Payments.Confirm(ctx, other, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, CaseID: &c.ID})
	requireAppError(t, err, http.StatusForbidden, "")

	intent, err = env.svc.Payments.CreateIntent(ctx, tenant, nil, c.ID)
	require.NoError(t, err)
	res, err := env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, CaseID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, c.ID, res.Case.ID)
	assert.Equal(t, models.CaseStatusOpen, res.Case.Status)

	timeline, err := env.svc.Cases.Timeline(ctx, tenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventPaymentReceived, timeline[len(timeline)-1].EventType)
}

func TestConfirm_IntentBoundToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")

	c, err := env.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)
	intent, err := env.svc.Payments.CreateIntent(ctx, tenant, nil, c.ID)
	require.NoError(t, err)

	// Another tenant cannot spend the intent on a case of their own.
	in := sampleCaseInput()
	_, err = env.svc.Payments.Confirm(ctx, other, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	requireAppError(t, err, http.StatusForbidden, "")

	// The owner cannot move it to a different case either.
	_, err = env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	requireAppError(t, err, http.StatusBadRequest, "caseId")

	var paid int64
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&paid).Error)
	assert.EqualValues(t, 0, paid)

	res, err := env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, CaseID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, res.Payment.TenantID)
	assert.Equal(t, c.ID, res.Case.ID)
}

func TestConfirm_RejectsUnpaidIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	in := sampleCaseInput()

	_, err := env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: "pi_missing", Case: &in})
	requireAppError(t, err, http.StatusBadRequest, "paymentIntentId")

	intent, err := env.svc.Payments.CreateIntent(ctx, tenant, nil, "")
	require.NoError(t, err)
	require.NoError(t, env.gateway.SetStatus(intent.PaymentIntentID, payments.IntentRequiresPaymentMethod))
	_, err = env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID, Case: &in})
	requireAppError(t, err, http.StatusBadRequest, "paymentIntentId")

	_, err = env.svc.Payments.Confirm(ctx, tenant, ConfirmInput{PaymentIntentID: intent.PaymentIntentID})
	requireAppError(t, err, http.StatusBadRequest, "")
}

func TestPaymentAccessAndDecisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")
	res := env.paidCase(t, tenant)

	_, err := env.svc.Payments.Get(ctx, other, res.Payment.ID)
	requireAppError(t, err, http.StatusForbidden, "")

	page, err := env.svc.Payments.List(ctx, other, PaymentFilter{}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 0, page.Total)

	page, err = env.svc.Payments.List(ctx, admin, PaymentFilter{}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	payment, c, err := env.svc.Payments.Receipt(ctx, tenant, res.Payment.ID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, res.Case.CaseNumber, c.CaseNumber)
	assert.NotNil(t, payment.Tenant)

	// Processed payments are no longer pending, so a decision is refused.
	_, err = env.svc.Payments.Approve(ctx, admin, res.Payment.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	pending := models.Payment{
		TenantID: tenant.ID,
		Amount:   decimal.NewFromInt(1500),
		Currency: "nok",
		Status:   models.PaymentStatusPending,
	}
	require.NoError(t, env.db.Create(&pending).Error)

	_, err = env.svc.Payments.Reject(ctx, admin, pending.ID, "")
	requireAppError(t, err, http.StatusBadRequest, "reason")

	rejected, err := env.svc.Payments.Reject(ctx, admin, pending.ID, "Duplikat")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRejected, rejected.Status)
}
