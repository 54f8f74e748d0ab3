package models

import "time"

type NotificationType string

const (
	NotificationCaseAssigned      NotificationType = "caseAssigned"
	NotificationCaseStatusChanged NotificationType = "caseStatusChanged"
	NotificationNewMessage        NotificationType = "newMessage"
	NotificationPayoutDecided     NotificationType = "payoutDecided"
	NotificationRefundDecided     NotificationType = "refundDecided"
	NotificationReportSubmitted   NotificationType = "reportSubmitted"
)

type Notification struct {
	Base
	UserID string           `json:"userId" gorm:"type:varchar(36);not null;index"`
	Type   NotificationType `json:"type" gorm:"size:40;not null"`
	Title  string           `json:"title" gorm:"not null"`
	Body   string           `json:"body" gorm:"type:text"`
	CaseID *string          `json:"caseId,omitempty" gorm:"type:varchar(36)"`
	IsRead bool             `json:"isRead" gorm:"not null;default:false;index"`
	ReadAt *time.Time       `json:"readAt,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}
