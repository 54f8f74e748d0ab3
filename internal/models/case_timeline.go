package models

type TimelineEvent string

const (
	EventCaseCreated       TimelineEvent = "caseCreated"
	EventPaymentReceived   TimelineEvent = "paymentReceived"
	EventInspectorAssigned TimelineEvent = "inspectorAssigned"
	EventCaseClaimed       TimelineEvent = "caseClaimed"
	EventCaseReleased      TimelineEvent = "caseReleased"
	EventCaseOnHold        TimelineEvent = "caseOnHold"
	EventCaseResumed       TimelineEvent = "caseResumed"
	EventCaseCompleted     TimelineEvent = "caseCompleted"
	EventCaseClosed        TimelineEvent = "caseClosed"
	EventCaseCancelled     TimelineEvent = "caseCancelled"
	EventReportSubmitted   TimelineEvent = "reportSubmitted"
	EventRefundRequested   TimelineEvent = "refundRequested"
)

// CaseTimeline is append-only; rows are never updated.
type CaseTimeline struct {
	Base
	CaseID      string        `json:"caseId" gorm:"type:varchar(36);not null;index"`
	EventType   TimelineEvent `json:"eventType" gorm:"size:40;not null"`
	Description string        `json:"description" gorm:"type:text"`
	ActorID     *string       `json:"actorId,omitempty" gorm:"type:varchar(36)"`
}

func (CaseTimeline) TableName() string {
	return "case_timelines"
}
