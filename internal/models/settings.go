package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlatformSettingsID is the fixed key of the singleton settings row.
const PlatformSettingsID = "PLATFORM_SETTINGS"

type PlatformSettings struct {
	ID                        string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	InspectionPrice           decimal.Decimal `json:"inspectionPrice" gorm:"type:decimal(12,2);not null"`
	InspectorCaseFee          decimal.Decimal `json:"inspectorCaseFee" gorm:"type:decimal(12,2);not null"`
	VATRate                   decimal.Decimal `json:"vatRate" gorm:"type:decimal(5,2);not null"`
	Currency                  string          `json:"currency" gorm:"size:3;not null"`
	CaseResponseDeadlineHours int             `json:"caseResponseDeadlineHours" gorm:"not null"`
	ReportDeadlineDays        int             `json:"reportDeadlineDays" gorm:"not null"`
	GDPRDataRetentionDays     int             `json:"gdprDataRetentionDays" gorm:"not null"`
	GDPRConsentRequired       bool            `json:"gdprConsentRequired" gorm:"not null"`
	GDPRContactEmail          string          `json:"gdprContactEmail"`
	UpdatedBy                 *string         `json:"updatedBy,omitempty" gorm:"type:varchar(36)"`
	CreatedAt                 time.Time       `json:"createdAt"`
	UpdatedAt                 time.Time       `json:"updatedAt"`
}

func (PlatformSettings) TableName() string {
	return "platform_settings"
}

// DefaultPlatformSettings is the row created on first read.
func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		ID:                        PlatformSettingsID,
		InspectionPrice:           decimal.NewFromInt(1500),
		InspectorCaseFee:          decimal.NewFromInt(900),
		VATRate:                   decimal.NewFromInt(25),
		Currency:                  "nok",
		CaseResponseDeadlineHours: 48,
		ReportDeadlineDays:        7,
		GDPRDataRetentionDays:     365 * 3,
		GDPRConsentRequired:       true,
		GDPRContactEmail:          "personvern@utleieskade.no",
	}
}
