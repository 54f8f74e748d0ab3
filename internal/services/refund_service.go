package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/payments"
)

type RefundService struct {
	db            *gorm.DB
	gateway       payments.Gateway
	actions       *ActionLogService
	notifications *NotificationService
}

func NewRefundService(db *gorm.DB, gateway payments.Gateway, actions *ActionLogService, notifications *NotificationService) *RefundService {
	return &RefundService{db: db, gateway: gateway, actions: actions, notifications: notifications}
}

type RefundInput struct {
	PaymentID string          `json:"paymentId" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"gt=0"`
	Reason    string          `json:"reason" binding:"required"`
}

func sumRefunds(tx *gorm.DB, paymentID string, statuses []models.RefundStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.Model(&models.Refund{}).
		Where("payment_id = ? AND status IN ?", paymentID, statuses).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// Request files a refund against one of the tenant's processed payments.
func (rfs *RefundService) Request(ctx context.Context, tenant Actor, in RefundInput) (*models.Refund, error) {
	reason := CleanText(in.Reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("reason", "Reason is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.NewFieldError("amount", "Amount must be greater than zero")
	}

	var refund models.Refund
	err := rfs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "id = ?", in.PaymentID).Error; err != nil {
			return err
		}
		if payment.TenantID != tenant.ID {
			return apperrors.NewForbiddenError("You do not have access to this payment")
		}
		if payment.Status != models.PaymentStatusProcessed {
			return apperrors.NewValidationError("Only processed payments can be refunded")
		}

		requested, err := sumRefunds(tx, payment.ID, []models.RefundStatus{models.RefundStatusPending, models.RefundStatusApproved})
		if err != nil {
			return err
		}
		remaining := payment.Amount.Sub(requested)
		if in.Amount.GreaterThan(remaining) {
			return apperrors.NewFieldError("amount", "Amount exceeds the refundable balance of "+remaining.StringFixed(2))
		}

		refund = models.Refund{
			PaymentID: payment.ID,
			TenantID:  tenant.ID,
			CaseID:    payment.CaseID,
			Amount:    in.Amount,
			Status:    models.RefundStatusPending,
			Reason:    reason,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		if payment.CaseID != nil {
			return addTimeline(tx, *payment.CaseID, models.EventRefundRequested,
				"Refund of "+in.Amount.StringFixed(2)+" requested", tenant.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "payment")
	}
	return &refund, nil
}

type RefundFilter struct {
	Status models.RefundStatus
}

func (rfs *RefundService) List(ctx context.Context, actor Actor, f RefundFilter, p Pagination) (*Page[models.Refund], error) {
	query := rfs.db.WithContext(ctx).Model(&models.Refund{})
	if !actor.IsStaff() {
		query = query.Where("tenant_id = ?", actor.ID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "refunds")
	}
	var items []models.Refund
	if err := query.Preload("Payment").Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, apperrors.FromGorm(err, "refunds")
	}
	return &Page[models.Refund]{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (rfs *RefundService) get(ctx context.Context, id string) (*models.Refund, error) {
	var refund models.Refund
	if err := rfs.db.WithContext(ctx).Preload("Payment").First(&refund, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromGorm(err, "refund")
	}
	return &refund, nil
}

// claim moves a pending refund to status, failing when another decision won.
func (rfs *RefundService) claim(ctx context.Context, id string, updates map[string]interface{}) error {
	res := rfs.db.WithContext(ctx).Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, models.RefundStatusPending).
		Updates(updates)
	if res.Error != nil {
		return apperrors.FromGorm(res.Error, "refund")
	}
	if res.RowsAffected == 0 {
		return apperrors.NewValidationError("Refund has already been decided")
	}
	return nil
}

// Approve returns the money through the processor and marks the payment
// refunded once its refunds cover the full amount.
func (rfs *RefundService) Approve(ctx context.Context, admin Actor, id string) (*models.Refund, error) {
	refund, err := rfs.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if refund.Status != models.RefundStatusPending {
		return nil, apperrors.NewValidationError("Refund has already been " + string(refund.Status))
	}
	if refund.Payment == nil || refund.Payment.StripePaymentIntentID == nil {
		return nil, apperrors.NewValidationError("Payment has no card transaction to refund")
	}

	now := time.Now()
	if err := rfs.claim(ctx, id, map[string]interface{}{
		"status":     models.RefundStatusApproved,
		"decided_by": admin.ID,
		"decided_at": now,
	}); err != nil {
		return nil, err
	}

	result, err := rfs.gateway.Refund(ctx, *refund.Payment.StripePaymentIntentID, refund.Amount)
	if err != nil {
		logger.WithError(err, "refund_service").Error("Processor refund failed")
		revert := rfs.db.WithContext(ctx).Model(&models.Refund{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": models.RefundStatusPending, "decided_by": nil, "decided_at": nil})
		if revert.Error != nil {
			logger.WithError(revert.Error, "refund_service").Error("Failed to reopen refund after processor error")
		}
		return nil, apperrors.NewInternalError("failed to refund payment", err)
	}

	err = rfs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Refund{}).Where("id = ?", id).Update("stripe_refund_id", result.ID).Error; err != nil {
			return err
		}
		approved, err := sumRefunds(tx, refund.PaymentID, []models.RefundStatus{models.RefundStatusApproved})
		if err != nil {
			return err
		}
		if approved.GreaterThanOrEqual(refund.Payment.Amount) {
			return tx.Model(&models.Payment{}).Where("id = ?", refund.PaymentID).
				Update("status", models.PaymentStatusRefunded).Error
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "refund")
	}

	rfs.decided(ctx, admin, refund, models.RefundStatusApproved)
	return rfs.get(ctx, id)
}

func (rfs *RefundService) Reject(ctx context.Context, admin Actor, id, reason string) (*models.Refund, error) {
	reason = CleanText(reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("reason", "Reason is required")
	}
	refund, err := rfs.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rfs.claim(ctx, id, map[string]interface{}{
		"status":           models.RefundStatusRejected,
		"rejection_reason": reason,
		"decided_by":       admin.ID,
		"decided_at":       time.Now(),
	}); err != nil {
		return nil, err
	}

	rfs.decided(ctx, admin, refund, models.RefundStatusRejected)
	return rfs.get(ctx, id)
}

func (rfs *RefundService) decided(ctx context.Context, admin Actor, refund *models.Refund, status models.RefundStatus) {
	action := models.ActionRefundRejected
	title := "Refusjon avvist"
	if status == models.RefundStatusApproved {
		action = models.ActionRefundApproved
		title = "Refusjon godkjent"
	}
	rfs.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  action,
		Description: "Refund " + refund.ID + " " + string(status),
		CaseID:      refund.CaseID,
		Metadata:    map[string]string{"refundId": refund.ID, "paymentId": refund.PaymentID, "amount": refund.Amount.StringFixed(2)},
	})
	rfs.notifications.Notify(ctx, refund.TenantID, models.NotificationRefundDecided, title,
		"Refusjon på "+refund.Amount.StringFixed(2)+" er behandlet.", refund.CaseID)
}
