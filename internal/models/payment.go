package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusProcessed PaymentStatus = "processed"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PayoutStatus string

const (
	PayoutStatusRequested PayoutStatus = "requested"
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusProcessed PayoutStatus = "processed"
	PayoutStatusRejected  PayoutStatus = "rejected"
)

// Open reports whether an admin may still approve or reject the payout.
func (s PayoutStatus) Open() bool {
	return s == PayoutStatusRequested || s == PayoutStatusPending
}

type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusRejected RefundStatus = "rejected"
)

// Payment is a tenant-side payment, keyed for idempotency by the Stripe intent id.
type Payment struct {
	Base
	TenantID              string          `json:"tenantId" gorm:"type:varchar(36);not null;index"`
	Tenant                *User           `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	CaseID                *string         `json:"caseId" gorm:"type:varchar(36);index"`
	Amount                decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency              string          `json:"currency" gorm:"size:3;not null;default:'nok'"`
	Status                PaymentStatus   `json:"status" gorm:"size:20;not null;default:'pending';index"`
	StripePaymentIntentID *string         `json:"stripePaymentIntentId,omitempty" gorm:"size:255;uniqueIndex"`
	Description           string          `json:"description"`
	RejectionReason       *string         `json:"rejectionReason,omitempty" gorm:"type:text"`
	ProcessedAt           *time.Time      `json:"processedAt,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// InspectorPayment is one payout ledger entry.
type InspectorPayment struct {
	Base
	InspectorID     string          `json:"inspectorId" gorm:"type:varchar(36);not null;index"`
	Inspector       *User           `json:"inspector,omitempty" gorm:"foreignKey:InspectorID"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status          PayoutStatus    `json:"status" gorm:"size:20;not null;default:'requested';index"`
	Description     string          `json:"description"`
	RejectionReason *string         `json:"rejectionReason,omitempty" gorm:"type:text"`
	DecidedBy       *string         `json:"decidedBy,omitempty" gorm:"type:varchar(36)"`
	DecidedAt       *time.Time      `json:"decidedAt,omitempty"`
}

func (InspectorPayment) TableName() string {
	return "inspector_payments"
}

type Refund struct {
	Base
	PaymentID       string          `json:"paymentId" gorm:"type:varchar(36);not null;index"`
	Payment         *Payment        `json:"payment,omitempty" gorm:"foreignKey:PaymentID"`
	TenantID        string          `json:"tenantId" gorm:"type:varchar(36);not null;index"`
	CaseID          *string         `json:"caseId" gorm:"type:varchar(36);index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Status          RefundStatus    `json:"status" gorm:"size:20;not null;default:'pending';index"`
	Reason          string          `json:"reason" gorm:"type:text;not null"`
	RejectionReason *string         `json:"rejectionReason,omitempty" gorm:"type:text"`
	StripeRefundID  *string         `json:"stripeRefundId,omitempty" gorm:"size:255"`
	DecidedBy       *string         `json:"decidedBy,omitempty" gorm:"type:varchar(36)"`
	DecidedAt       *time.Time      `json:"decidedAt,omitempty"`
}

func (Refund) TableName() string {
	return "refunds"
}
