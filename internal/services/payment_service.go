package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/payments"
)

var errPaymentProcessed = apperrors.NewFieldError("paymentIntentId", "Payment already processed")

type PaymentService struct {
	db       *gorm.DB
	gateway  payments.Gateway
	settings *SettingsService
	actions  *ActionLogService
}

func NewPaymentService(db *gorm.DB, gateway payments.Gateway, settings *SettingsService, actions *ActionLogService) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, settings: settings, actions: actions}
}

type IntentResult struct {
	ClientSecret    string          `json:"clientSecret"`
	PaymentIntentID string          `json:"paymentIntentId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// CreateIntent opens a card payment for the inspection price, or for amount
// when one is given.
func (ps *PaymentService) CreateIntent(ctx context.Context, tenant Actor, amount *decimal.Decimal, caseID string) (*IntentResult, error) {
	settings, err := ps.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	price := settings.InspectionPrice
	if amount != nil {
		if !amount.IsPositive() {
			return nil, apperrors.NewFieldError("amount", "Amount must be greater than zero")
		}
		price = *amount
	}

	metadata := map[string]string{"tenantId": tenant.ID}
	if caseID != "" {
		metadata["caseId"] = caseID
	}
	intent, err := ps.gateway.CreateIntent(ctx, price, settings.Currency, metadata)
	if err != nil {
		logger.WithError(err, "payment_service").Error("Failed to create payment intent")
		return nil, apperrors.NewInternalError("failed to create payment intent", err)
	}

	return &IntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	}, nil
}

type ConfirmInput struct {
	PaymentIntentID string     `json:"paymentIntentId" binding:"required"`
	CaseID          *string    `json:"caseId"`
	Case            *CaseInput `json:"case"`
}

type ConfirmResult struct {
	Payment *models.Payment `json:"payment"`
	Case    *models.Case    `json:"case"`
}

// Confirm records a succeeded intent and opens the paid case. The intent id is
// unique on payments, so a replay cannot create a second payment.
func (ps *PaymentService) Confirm(ctx context.Context, tenant Actor, in ConfirmInput) (*ConfirmResult, error) {
	if (in.CaseID == nil || *in.CaseID == "") && in.Case == nil {
		return nil, apperrors.NewValidationError("Either caseId or case is required")
	}

	intent, err := ps.gateway.GetIntent(ctx, in.PaymentIntentID)
	if errors.Is(err, payments.ErrIntentNotFound) {
		return nil, apperrors.NewFieldError("paymentIntentId", "Unknown payment intent")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to fetch payment intent", err)
	}
	if intent.Status != payments.IntentSucceeded {
		return nil, apperrors.NewFieldError("paymentIntentId", fmt.Sprintf("Payment has not succeeded (status %s)", intent.Status))
	}
	// The intent is bound to the tenant, and optionally the case, it was created for.
	if intent.Metadata["tenantId"] != tenant.ID {
		return nil, apperrors.NewForbiddenError("This payment intent belongs to another user")
	}
	if intentCase := intent.Metadata["caseId"]; intentCase != "" && (in.CaseID == nil || *in.CaseID != intentCase) {
		return nil, apperrors.NewFieldError("caseId", "Payment intent was created for a different case")
	}

	var (
		payment models.Payment
		caseID  string
	)
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&models.Payment{}).Where("stripe_payment_intent_id = ?", intent.ID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return errPaymentProcessed
		}

		if in.CaseID != nil && *in.CaseID != "" {
			var c models.Case
			if err := tx.First(&c, "id = ?", *in.CaseID).Error; err != nil {
				return err
			}
			if c.TenantID != tenant.ID {
				return apperrors.NewForbiddenError("You do not have access to this case")
			}
			if c.Status != models.CaseStatusPending {
				return apperrors.NewValidationError("Case is not awaiting payment")
			}
			res := tx.Model(&models.Case{}).
				Where("id = ? AND status = ?", c.ID, models.CaseStatusPending).
				Update("status", models.CaseStatusOpen)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.NewStateConflictError("Case was modified concurrently, try again")
			}
			caseID = c.ID
		} else {
			c, err := createCaseTx(tx, tenant.ID, *in.Case, models.CaseStatusOpen)
			if err != nil {
				return err
			}
			caseID = c.ID
		}

		now := time.Now()
		payment = models.Payment{
			TenantID:              tenant.ID,
			CaseID:                strPtr(caseID),
			Amount:                intent.Amount,
			Currency:              intent.Currency,
			Status:                models.PaymentStatusProcessed,
			StripePaymentIntentID: strPtr(intent.ID),
			Description:           "Inspection payment",
			ProcessedAt:           &now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		return addTimeline(tx, caseID, models.EventPaymentReceived,
			"Payment of "+intent.Amount.StringFixed(2)+" "+intent.Currency+" received", tenant.ID)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errPaymentProcessed
	}
	if err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}

	logger.WithCase(caseID).WithFields(map[string]interface{}{
		"payment_id": payment.ID,
		"intent_id":  intent.ID,
	}).Info("Payment confirmed")

	var c models.Case
	if err := ps.db.WithContext(ctx).Preload("Property").Preload("Damages.Photos").First(&c, "id = ?", caseID).Error; err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}
	return &ConfirmResult{Payment: &payment, Case: &c}, nil
}

type PaymentFilter struct {
	Status models.PaymentStatus
	SortBy string
	Order  string
}

var paymentSort = SortSpec{
	Allowed: map[string]string{
		"createdAt": "created_at",
		"amount":    "amount",
		"status":    "status",
	},
	Default: "createdAt",
}

func (ps *PaymentService) List(ctx context.Context, actor Actor, f PaymentFilter, p Pagination) (*Page[models.Payment], error) {
	order, err := paymentSort.Clause(f.SortBy, f.Order)
	if err != nil {
		return nil, err
	}
	query := ps.db.WithContext(ctx).Model(&models.Payment{})
	if !actor.IsStaff() {
		query = query.Where("tenant_id = ?", actor.ID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payments")
	}
	var items []models.Payment
	if err := query.Preload("Tenant").Order(order).Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payments")
	}
	return &Page[models.Payment]{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (ps *PaymentService) Get(ctx context.Context, actor Actor, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := ps.db.WithContext(ctx).Preload("Tenant").First(&payment, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payment")
	}
	if !actor.IsStaff() && payment.TenantID != actor.ID {
		return nil, apperrors.NewForbiddenError("You do not have access to this payment")
	}
	return &payment, nil
}

// Receipt returns the payment with its tenant and case for rendering.
func (ps *PaymentService) Receipt(ctx context.Context, actor Actor, id string) (*models.Payment, *models.Case, error) {
	payment, err := ps.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if payment.CaseID == nil {
		return payment, nil, nil
	}
	var c models.Case
	if err := ps.db.WithContext(ctx).Preload("Property").First(&c, "id = ?", *payment.CaseID).Error; err != nil {
		return nil, nil, apperrors.FromGorm(err, "case")
	}
	return payment, &c, nil
}

// Approve marks a pending payment processed.
func (ps *PaymentService) Approve(ctx context.Context, admin Actor, id string) (*models.Payment, error) {
	now := time.Now()
	return ps.decide(ctx, admin, id, map[string]interface{}{
		"status":       models.PaymentStatusProcessed,
		"processed_at": now,
	}, models.ActionPaymentApproved)
}

// Reject marks a pending payment rejected.
func (ps *PaymentService) Reject(ctx context.Context, admin Actor, id, reason string) (*models.Payment, error) {
	reason = CleanText(reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("reason", "Reason is required")
	}
	return ps.decide(ctx, admin, id, map[string]interface{}{
		"status":           models.PaymentStatusRejected,
		"rejection_reason": reason,
	}, models.ActionPaymentRejected)
}

func (ps *PaymentService) decide(ctx context.Context, admin Actor, id string, updates map[string]interface{}, action models.ActionType) (*models.Payment, error) {
	payment, err := ps.Get(ctx, admin, id)
	if err != nil {
		return nil, err
	}
	res := ps.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return nil, apperrors.FromGorm(res.Error, "payment")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Payment is already %s", payment.Status))
	}

	ps.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  action,
		Description: "Payment " + payment.ID + " " + string(updates["status"].(models.PaymentStatus)),
		CaseID:      payment.CaseID,
		Metadata:    map[string]string{"paymentId": payment.ID, "amount": payment.Amount.StringFixed(2)},
	})
	return ps.Get(ctx, admin, id)
}
