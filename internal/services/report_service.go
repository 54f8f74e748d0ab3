package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

type ReportService struct {
	db            *gorm.DB
	cases         *CaseService
	actions       *ActionLogService
	notifications *NotificationService
}

func NewReportService(db *gorm.DB, cases *CaseService, actions *ActionLogService, notifications *NotificationService) *ReportService {
	return &ReportService{db: db, cases: cases, actions: actions, notifications: notifications}
}

type AssessmentItemInput struct {
	Description string          `json:"description" binding:"required"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity" binding:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" binding:"gte=0"`
	Hours       decimal.Decimal `json:"hours" binding:"gte=0"`
	HourlyRate  decimal.Decimal `json:"hourlyRate" binding:"gte=0"`
	MaterialSum decimal.Decimal `json:"materialSum" binding:"gte=0"`
	LaborSum    decimal.Decimal `json:"laborSum" binding:"gte=0"`
	Total       decimal.Decimal `json:"total" binding:"gte=0"`
}

type AssessmentSummaryInput struct {
	TotalHours  decimal.Decimal `json:"totalHours"`
	MaterialSum decimal.Decimal `json:"materialSum"`
	LaborSum    decimal.Decimal `json:"laborSum"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VAT         decimal.Decimal `json:"vat"`
	Total       decimal.Decimal `json:"total"`
}

type ReportPhotoInput struct {
	URL     string `json:"url" binding:"required"`
	Caption string `json:"caption"`
}

type ReportInput struct {
	Notes   string                  `json:"notes"`
	Items   []AssessmentItemInput   `json:"items" binding:"required,min=1,dive"`
	Summary *AssessmentSummaryInput `json:"summary" binding:"required"`
	Photos  []ReportPhotoInput      `json:"photos" binding:"dive"`
}

// Submit stores the assigned inspector's report on a completed case.
// Figures are kept exactly as submitted.
func (rs *ReportService) Submit(ctx context.Context, inspector Actor, caseID string, in ReportInput) (*models.Report, error) {
	c, err := rs.cases.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.HasInspector(inspector.ID) {
		return nil, apperrors.NewForbiddenError("You are not assigned to this case")
	}
	if c.Status != models.CaseStatusCompleted {
		return nil, apperrors.NewValidationError("Reports can only be submitted for completed cases")
	}
	if c.Report != nil {
		return nil, apperrors.NewValidationError("Report already submitted")
	}
	if in.Summary == nil {
		return nil, apperrors.NewFieldError("summary", "Summary is required")
	}

	report := models.Report{
		CaseID:      c.ID,
		InspectorID: inspector.ID,
		Notes:       CleanText(in.Notes),
		Summary: &models.AssessmentSummary{
			TotalHours:  in.Summary.TotalHours,
			MaterialSum: in.Summary.MaterialSum,
			LaborSum:    in.Summary.LaborSum,
			Subtotal:    in.Summary.Subtotal,
			VAT:         in.Summary.VAT,
			Total:       in.Summary.Total,
		},
	}
	for _, item := range in.Items {
		report.Items = append(report.Items, models.AssessmentItem{
			Description: CleanText(item.Description),
			Unit:        strings.TrimSpace(item.Unit),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Hours:       item.Hours,
			HourlyRate:  item.HourlyRate,
			MaterialSum: item.MaterialSum,
			LaborSum:    item.LaborSum,
			Total:       item.Total,
		})
	}
	for _, photo := range in.Photos {
		report.Photos = append(report.Photos, models.ReportPhoto{URL: photo.URL, Caption: CleanText(photo.Caption)})
	}

	err = rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return addTimeline(tx, c.ID, models.EventReportSubmitted, "Inspection report submitted", inspector.ID)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, apperrors.NewValidationError("Report already submitted")
	}
	if err != nil {
		return nil, apperrors.FromGorm(err, "report")
	}

	logger.WithCase(c.ID).WithField("report_id", report.ID).Info("Report submitted")
	rs.actions.Log(ctx, ActionEntry{
		Actor:       inspector,
		ActionType:  models.ActionReportSubmitted,
		Description: "Report submitted for case " + c.CaseNumber,
		CaseID:      strPtr(c.ID),
		Metadata:    map[string]string{"reportId": report.ID, "total": report.Summary.Total.StringFixed(2)},
	})
	rs.notifications.Notify(ctx, c.TenantID, models.NotificationReportSubmitted,
		"Rapport klar", "Inspeksjonsrapporten for sak "+c.CaseNumber+" er klar.", strPtr(c.ID))

	return rs.ForCase(ctx, inspector, c.ID)
}

// ForCase returns the case's report after an access check.
func (rs *ReportService) ForCase(ctx context.Context, actor Actor, caseID string) (*models.Report, error) {
	if _, err := rs.cases.Get(ctx, actor, caseID); err != nil {
		return nil, err
	}
	var report models.Report
	err := rs.db.WithContext(ctx).
		Preload("Items").
		Preload("Summary").
		Preload("Photos").
		First(&report, "case_id = ?", caseID).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "report")
	}
	return &report, nil
}
