package models

import (
	"gorm.io/datatypes"
)

type ActionType string

const (
	ActionCaseClaimed     ActionType = "claimed"
	ActionCaseCancelled   ActionType = "cancelled"
	ActionCaseOnHold      ActionType = "on-hold"
	ActionCaseResumed     ActionType = "resumed"
	ActionCaseReleased    ActionType = "released"
	ActionCaseCompleted   ActionType = "completed"
	ActionCaseAssigned    ActionType = "assigned"
	ActionStatusChanged   ActionType = "status-changed"
	ActionReportSubmitted ActionType = "report-submitted"
	ActionPayoutRequested ActionType = "payout-requested"
	ActionPayoutApproved  ActionType = "payout-approved"
	ActionPayoutRejected  ActionType = "payout-rejected"
	ActionPaymentApproved ActionType = "payment-approved"
	ActionPaymentRejected ActionType = "payment-rejected"
	ActionRefundApproved  ActionType = "refund-approved"
	ActionRefundRejected  ActionType = "refund-rejected"
	ActionUserDeactivated ActionType = "user-deactivated"
	ActionUserActivated   ActionType = "user-activated"
	ActionUserDeleted     ActionType = "user-deleted"
	ActionSettingsUpdated ActionType = "settings-updated"
)

// ActionLog is an audit entry. At least one of InspectorID and AdminID is set.
type ActionLog struct {
	Base
	InspectorID *string        `json:"inspectorId,omitempty" gorm:"type:varchar(36);index"`
	AdminID     *string        `json:"adminId,omitempty" gorm:"type:varchar(36);index"`
	ActionType  ActionType     `json:"actionType" gorm:"size:40;not null;index"`
	Description string         `json:"description" gorm:"type:text"`
	CaseID      *string        `json:"caseId,omitempty" gorm:"type:varchar(36);index"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
}

func (ActionLog) TableName() string {
	return "action_logs"
}
