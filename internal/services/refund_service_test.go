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

func TestRefundRequest_Limits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	other := env.addUser(t, models.RoleTenant, "kari@example.no")
	paid := env.paidCase(t, tenant)

	_, err := env.svc.Refunds.Request(ctx, other, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(100), Reason: "Feil"})
	requireAppError(t, err, http.StatusForbidden, "")

	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(100), Reason: " "})
	requireAppError(t, err, http.StatusBadRequest, "reason")

	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1501), Reason: "For mye"})
	requireAppError(t, err, http.StatusBadRequest, "amount")

	refund, err := env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1000), Reason: "Avlyst befaring"})
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPending, refund.Status)
	require.NotNil(t, refund.CaseID)
	assert.Equal(t, paid.Case.ID, *refund.CaseID)

	// Pending refunds count against the remaining balance.
	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(600), Reason: "Mer"})
	requireAppError(t, err, http.StatusBadRequest, "amount")

	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: "missing", Amount: decimal.NewFromInt(1), Reason: "x"})
	requireAppError(t, err, http.StatusNotFound, "")
}

func TestRefundApprove_FullAmountMarksPaymentRefunded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	paid := env.paidCase(t, tenant)

	part, err := env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(500), Reason: "Delvis"})
	require.NoError(t, err)
	approved, err := env.svc.Refunds.Approve(ctx, admin, part.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusApproved, approved.Status)
	require.NotNil(t, approved.StripeRefundID)
	assert.Equal(t, models.PaymentStatusProcessed, approved.Payment.Status)

	_, err = env.svc.Refunds.Approve(ctx, admin, part.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	rest, err := env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1000), Reason: "Resten"})
	require.NoError(t, err)
	approved, err = env.svc.Refunds.Approve(ctx, admin, rest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, approved.Payment.Status)
	assert.Len(t, env.gateway.Refunds(), 2)

	// Nothing is left to refund once the payment is refunded.
	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1), Reason: "Igjen"})
	requireAppError(t, err, http.StatusBadRequest, "")

	stats, err := env.svc.Users.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, stats.TotalRefunded.Equal(decimal.NewFromInt(1500)), stats.TotalRefunded.String())
}

func TestRefundReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	paid := env.paidCase(t, tenant)

	refund, err := env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1500), Reason: "Alt"})
	require.NoError(t, err)

	_, err = env.svc.Refunds.Reject(ctx, admin, refund.ID, "")
	requireAppError(t, err, http.StatusBadRequest, "reason")

	rejected, err := env.svc.Refunds.Reject(ctx, admin, refund.ID, "Befaring utført")
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusRejected, rejected.Status)
	assert.Empty(t, env.gateway.Refunds())

	// A rejected refund frees the balance again.
	_, err = env.svc.Refunds.Request(ctx, tenant, RefundInput{PaymentID: paid.Payment.ID, Amount: decimal.NewFromInt(1500), Reason: "Ny"})
	require.NoError(t, err)

	page, err := env.svc.Refunds.List(ctx, tenant, RefundFilter{Status: models.RefundStatusRejected}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}
