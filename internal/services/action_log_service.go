package services

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

type ActionLogService struct {
	db *gorm.DB
}

func NewActionLogService(db *gorm.DB) *ActionLogService {
	return &ActionLogService{db: db}
}

type ActionEntry struct {
	Actor       Actor
	ActionType  models.ActionType
	Description string
	CaseID      *string
	Metadata    interface{}
}

// Log records an audit entry. Failures are logged and swallowed so they never
// fail the request that triggered them.
func (als *ActionLogService) Log(ctx context.Context, entry ActionEntry) {
	als.logWith(als.db.WithContext(ctx), entry)
}

func (als *ActionLogService) logWith(tx *gorm.DB, entry ActionEntry) {
	record := models.ActionLog{
		ActionType:  entry.ActionType,
		Description: entry.Description,
		CaseID:      entry.CaseID,
	}
	switch {
	case entry.Actor.Role == models.RoleInspector:
		record.InspectorID = strPtr(entry.Actor.ID)
	case entry.Actor.IsStaff():
		record.AdminID = strPtr(entry.Actor.ID)
	default:
		logger.Warn("Action log skipped: actor is neither inspector nor admin", map[string]interface{}{
			"actor_id":    entry.Actor.ID,
			"actor_role":  entry.Actor.Role,
			"action_type": entry.ActionType,
		})
		return
	}

	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			logger.WithError(err, "action_log").Warn("Failed to encode action metadata")
		} else {
			record.Metadata = datatypes.JSON(raw)
		}
	}

	if err := tx.Create(&record).Error; err != nil {
		logger.WithError(err, "action_log").Error("Failed to write action log")
	}
}

type ActionLogFilter struct {
	InspectorID string
	AdminID     string
	CaseID      string
	ActionType  string
}

func (als *ActionLogService) List(ctx context.Context, f ActionLogFilter, p Pagination) (*Page[models.ActionLog], error) {
	query := als.db.WithContext(ctx).Model(&models.ActionLog{})
	if f.InspectorID != "" {
		query = query.Where("inspector_id = ?", f.InspectorID)
	}
	if f.AdminID != "" {
		query = query.Where("admin_id = ?", f.AdminID)
	}
	if f.CaseID != "" {
		query = query.Where("case_id = ?", f.CaseID)
	}
	if f.ActionType != "" {
		query = query.Where("action_type = ?", f.ActionType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "action logs")
	}
	var logs []models.ActionLog
	if err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&logs).Error; err != nil {
		return nil, apperrors.FromGorm(err, "action logs")
	}
	return &Page[models.ActionLog]{Items: logs, Page: p.Page, Limit: p.Limit, Total: total}, nil
}
