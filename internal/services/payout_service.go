package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/pdf"
)

type PayoutService struct {
	db            *gorm.DB
	users         *UserService
	settings      *SettingsService
	actions       *ActionLogService
	notifications *NotificationService
	mailer        email.Mailer
}

func NewPayoutService(db *gorm.DB, users *UserService, settings *SettingsService, actions *ActionLogService, notifications *NotificationService, mailer email.Mailer) *PayoutService {
	return &PayoutService{
		db:            db,
		users:         users,
		settings:      settings,
		actions:       actions,
		notifications: notifications,
		mailer:        mailer,
	}
}

// Earnings is an inspector's balance.
type Earnings struct {
	CompletedCases int64           `json:"completedCases"`
	CaseFee        decimal.Decimal `json:"caseFee"`
	Gross          decimal.Decimal `json:"gross"`
	PaidOut        decimal.Decimal `json:"paidOut"`
	Pending        decimal.Decimal `json:"pending"`
	Available      decimal.Decimal `json:"available"`
	Currency       string          `json:"currency"`
}

var openPayoutStatuses = []models.PayoutStatus{models.PayoutStatusRequested, models.PayoutStatusPending}

func sumPayouts(tx *gorm.DB, inspectorID string, statuses []models.PayoutStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := tx.Model(&models.InspectorPayment{}).
		Where("inspector_id = ? AND status IN ?", inspectorID, statuses).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// earnings computes the balance inside tx. Rejected payouts do not reduce it.
func earnings(tx *gorm.DB, inspectorID string, settings *models.PlatformSettings) (*Earnings, error) {
	e := &Earnings{CaseFee: settings.InspectorCaseFee, Currency: settings.Currency}
	err := tx.Model(&models.Case{}).
		Where("inspector_id = ? AND status IN ?", inspectorID,
			[]models.CaseStatus{models.CaseStatusCompleted, models.CaseStatusClosed}).
		Count(&e.CompletedCases).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "cases")
	}
	e.Gross = settings.InspectorCaseFee.Mul(decimal.NewFromInt(e.CompletedCases))

	if e.PaidOut, err = sumPayouts(tx, inspectorID, []models.PayoutStatus{models.PayoutStatusProcessed}); err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	if e.Pending, err = sumPayouts(tx, inspectorID, openPayoutStatuses); err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	e.Available = e.Gross.Sub(e.PaidOut).Sub(e.Pending)
	if e.Available.IsNegative() {
		e.Available = decimal.Zero
	}
	return e, nil
}

func (pos *PayoutService) Earnings(ctx context.Context, inspectorID string) (*Earnings, error) {
	settings, err := pos.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return earnings(pos.db.WithContext(ctx), inspectorID, settings)
}

// Request files a payout after re-checking the inspector's password.
func (pos *PayoutService) Request(ctx context.Context, inspector Actor, amount decimal.Decimal, password string) (*models.InspectorPayment, error) {
	if err := pos.users.VerifyPassword(ctx, inspector.ID, password); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewFieldError("amount", "Amount must be greater than zero")
	}

	settings, err := pos.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	payout := models.InspectorPayment{
		InspectorID: inspector.ID,
		Amount:      amount,
		Status:      models.PayoutStatusRequested,
		Description: "Payout request",
	}
	err = pos.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise requests per inspector where the database supports row locks.
		if tx.Dialector.Name() != "sqlite" {
			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", inspector.ID).Error; err != nil {
				return err
			}
		}
		e, err := earnings(tx, inspector.ID, settings)
		if err != nil {
			return err
		}
		if amount.GreaterThan(e.Available) {
			return apperrors.NewFieldError("amount", "Amount exceeds available balance of "+e.Available.StringFixed(2))
		}
		return tx.Create(&payout).Error
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "payout")
	}

	pos.actions.Log(ctx, ActionEntry{
		Actor:       inspector,
		ActionType:  models.ActionPayoutRequested,
		Description: "Payout of " + amount.StringFixed(2) + " requested",
		Metadata:    map[string]string{"payoutId": payout.ID},
	})
	return &payout, nil
}

type PayoutFilter struct {
	InspectorID string
	Status      models.PayoutStatus
}

func (pos *PayoutService) List(ctx context.Context, f PayoutFilter, p Pagination) (*Page[models.InspectorPayment], error) {
	query := pos.db.WithContext(ctx).Model(&models.InspectorPayment{})
	if f.InspectorID != "" {
		query = query.Where("inspector_id = ?", f.InspectorID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	var items []models.InspectorPayment
	if err := query.Preload("Inspector").Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	return &Page[models.InspectorPayment]{Items: items, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (pos *PayoutService) Approve(ctx context.Context, admin Actor, id string) (*models.InspectorPayment, error) {
	return pos.decide(ctx, admin, id, models.PayoutStatusProcessed, "")
}

func (pos *PayoutService) Reject(ctx context.Context, admin Actor, id, reason string) (*models.InspectorPayment, error) {
	reason = CleanText(reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("reason", "Reason is required")
	}
	return pos.decide(ctx, admin, id, models.PayoutStatusRejected, reason)
}

// decide moves an open payout to status. The status guard in the update makes
// concurrent decisions on the same row mutually exclusive.
func (pos *PayoutService) decide(ctx context.Context, admin Actor, id string, status models.PayoutStatus, reason string) (*models.InspectorPayment, error) {
	var payout models.InspectorPayment
	if err := pos.db.WithContext(ctx).Preload("Inspector").First(&payout, "id = ?", id).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payout")
	}
	if !payout.Status.Open() {
		return nil, apperrors.NewValidationError("Payout has already been " + string(payout.Status))
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"decided_by": admin.ID,
		"decided_at": now,
	}
	if reason != "" {
		updates["rejection_reason"] = reason
	}
	res := pos.db.WithContext(ctx).Model(&models.InspectorPayment{}).
		Where("id = ? AND status IN ?", id, openPayoutStatuses).
		Updates(updates)
	if res.Error != nil {
		return nil, apperrors.FromGorm(res.Error, "payout")
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewValidationError("Payout has already been decided")
	}
	payout.Status = status
	payout.DecidedBy = strPtr(admin.ID)
	payout.DecidedAt = &now
	if reason != "" {
		payout.RejectionReason = strPtr(reason)
	}

	approved := status == models.PayoutStatusProcessed
	action := models.ActionPayoutRejected
	title := "Utbetaling avvist"
	if approved {
		action = models.ActionPayoutApproved
		title = "Utbetaling godkjent"
	}
	pos.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  action,
		Description: "Payout " + payout.ID + " " + string(status),
		Metadata:    map[string]string{"payoutId": payout.ID, "inspectorId": payout.InspectorID, "amount": payout.Amount.StringFixed(2)},
	})
	pos.notifications.Notify(ctx, payout.InspectorID, models.NotificationPayoutDecided, title,
		"Utbetaling på "+payout.Amount.StringFixed(2)+" er behandlet.", nil)
	if payout.Inspector != nil {
		msg := email.PayoutDecisionMessage(payout.Inspector.Email, payout.Inspector.FirstName, payout.Amount.StringFixed(2), approved, reason)
		if err := pos.mailer.Send(msg); err != nil {
			logger.WithError(err, "payout_service").Warn("Failed to send payout decision email")
		}
	}
	return &payout, nil
}

// Statement collects the data for an earnings PDF.
func (pos *PayoutService) Statement(ctx context.Context, inspectorID string) (*pdf.EarningsStatement, error) {
	inspector, err := pos.users.Get(ctx, inspectorID)
	if err != nil {
		return nil, err
	}
	e, err := pos.Earnings(ctx, inspectorID)
	if err != nil {
		return nil, err
	}
	var payouts []models.InspectorPayment
	if err := pos.db.WithContext(ctx).Where("inspector_id = ?", inspectorID).Order("created_at DESC").Find(&payouts).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	return &pdf.EarningsStatement{
		Inspector:      inspector,
		CompletedCases: e.CompletedCases,
		Gross:          e.Gross,
		PaidOut:        e.PaidOut,
		Pending:        e.Pending,
		Available:      e.Available,
		Currency:       e.Currency,
		Payouts:        payouts,
	}, nil
}
