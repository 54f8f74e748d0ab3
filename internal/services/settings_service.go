package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/models"
)

type SettingsService struct {
	db      *gorm.DB
	actions *ActionLogService
}

func NewSettingsService(db *gorm.DB, actions *ActionLogService) *SettingsService {
	return &SettingsService{db: db, actions: actions}
}

// Get returns the singleton settings row, creating it with defaults when absent.
func (ss *SettingsService) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var settings models.PlatformSettings
	err := ss.db.WithContext(ctx).First(&settings, "id = ?", models.PlatformSettingsID).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.FromGorm(err, "settings")
	}

	settings = models.DefaultPlatformSettings()
	// Two first reads may race; the loser keeps the winner's row.
	if err := ss.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return nil, apperrors.FromGorm(err, "settings")
	}
	if err := ss.db.WithContext(ctx).First(&settings, "id = ?", models.PlatformSettingsID).Error; err != nil {
		return nil, apperrors.FromGorm(err, "settings")
	}
	return &settings, nil
}

type SettingsUpdate struct {
	InspectionPrice           *decimal.Decimal `json:"inspectionPrice" binding:"omitempty,gt=0"`
	InspectorCaseFee          *decimal.Decimal `json:"inspectorCaseFee" binding:"omitempty,gte=0"`
	VATRate                   *decimal.Decimal `json:"vatRate" binding:"omitempty,gte=0,lte=100"`
	Currency                  *string          `json:"currency" binding:"omitempty,len=3"`
	CaseResponseDeadlineHours *int             `json:"caseResponseDeadlineHours" binding:"omitempty,min=1"`
	ReportDeadlineDays        *int             `json:"reportDeadlineDays" binding:"omitempty,min=1"`
	GDPRDataRetentionDays     *int             `json:"gdprDataRetentionDays" binding:"omitempty,min=30"`
	GDPRConsentRequired       *bool            `json:"gdprConsentRequired"`
	GDPRContactEmail          *string          `json:"gdprContactEmail" binding:"omitempty,email"`
}

// Update applies the non-nil fields of upd.
func (ss *SettingsService) Update(ctx context.Context, admin Actor, upd SettingsUpdate) (*models.PlatformSettings, error) {
	settings, err := ss.Get(ctx)
	if err != nil {
		return nil, err
	}

	if upd.InspectionPrice != nil {
		settings.InspectionPrice = *upd.InspectionPrice
	}
	if upd.InspectorCaseFee != nil {
		settings.InspectorCaseFee = *upd.InspectorCaseFee
	}
	if upd.VATRate != nil {
		settings.VATRate = *upd.VATRate
	}
	if upd.Currency != nil {
		settings.Currency = *upd.Currency
	}
	if upd.CaseResponseDeadlineHours != nil {
		settings.CaseResponseDeadlineHours = *upd.CaseResponseDeadlineHours
	}
	if upd.ReportDeadlineDays != nil {
		settings.ReportDeadlineDays = *upd.ReportDeadlineDays
	}
	if upd.GDPRDataRetentionDays != nil {
		settings.GDPRDataRetentionDays = *upd.GDPRDataRetentionDays
	}
	if upd.GDPRConsentRequired != nil {
		settings.GDPRConsentRequired = *upd.GDPRConsentRequired
	}
	if upd.GDPRContactEmail != nil {
		settings.GDPRContactEmail = *upd.GDPRContactEmail
	}
	settings.UpdatedBy = strPtr(admin.ID)

	if err := ss.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, apperrors.FromGorm(err, "settings")
	}

	ss.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  models.ActionSettingsUpdated,
		Description: "Platform settings updated",
		Metadata:    upd,
	})
	return settings, nil
}
