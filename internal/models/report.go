package models

import (
	"github.com/shopspring/decimal"
)

// Report is the inspector's assessment. Sums are stored as submitted.
type Report struct {
	Base
	CaseID      string             `json:"caseId" gorm:"type:varchar(36);not null;uniqueIndex"`
	InspectorID string             `json:"inspectorId" gorm:"type:varchar(36);not null;index"`
	Notes       string             `json:"notes" gorm:"type:text"`
	Items       []AssessmentItem   `json:"items" gorm:"foreignKey:ReportID"`
	Summary     *AssessmentSummary `json:"summary" gorm:"foreignKey:ReportID"`
	Photos      []ReportPhoto      `json:"photos" gorm:"foreignKey:ReportID"`
}

func (Report) TableName() string {
	return "reports"
}

type AssessmentItem struct {
	Base
	ReportID    string          `json:"reportId" gorm:"type:varchar(36);not null;index"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Unit        string          `json:"unit" gorm:"size:20"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(10,2);not null;default:0"`
	UnitPrice   decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null;default:0"`
	Hours       decimal.Decimal `json:"hours" gorm:"type:decimal(10,2);not null;default:0"`
	HourlyRate  decimal.Decimal `json:"hourlyRate" gorm:"type:decimal(12,2);not null;default:0"`
	MaterialSum decimal.Decimal `json:"materialSum" gorm:"type:decimal(12,2);not null;default:0"`
	LaborSum    decimal.Decimal `json:"laborSum" gorm:"type:decimal(12,2);not null;default:0"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null;default:0"`
}

func (AssessmentItem) TableName() string {
	return "assessment_items"
}

type AssessmentSummary struct {
	Base
	ReportID    string          `json:"reportId" gorm:"type:varchar(36);not null;uniqueIndex"`
	TotalHours  decimal.Decimal `json:"totalHours" gorm:"type:decimal(10,2);not null;default:0"`
	MaterialSum decimal.Decimal `json:"materialSum" gorm:"type:decimal(12,2);not null;default:0"`
	LaborSum    decimal.Decimal `json:"laborSum" gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	VAT         decimal.Decimal `json:"vat" gorm:"type:decimal(12,2);not null;default:0"`
	Total       decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null;default:0"`
}

func (AssessmentSummary) TableName() string {
	return "assessment_summaries"
}

type ReportPhoto struct {
	Base
	ReportID string `json:"reportId" gorm:"type:varchar(36);not null;index"`
	URL      string `json:"url" gorm:"not null"`
	Caption  string `json:"caption"`
}

func (ReportPhoto) TableName() string {
	return "report_photos"
}
