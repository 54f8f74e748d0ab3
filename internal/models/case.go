package models

import (
	"time"
)

type CaseStatus string
type CaseUrgency string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusOpen      CaseStatus = "open"
	CaseStatusActive    CaseStatus = "active"
	CaseStatusOnHold    CaseStatus = "on_hold"
	CaseStatusCompleted CaseStatus = "completed"
	CaseStatusClosed    CaseStatus = "closed"
	CaseStatusCancelled CaseStatus = "cancelled"
)

const (
	UrgencyLow      CaseUrgency = "low"
	UrgencyMedium   CaseUrgency = "medium"
	UrgencyHigh     CaseUrgency = "high"
	UrgencyCritical CaseUrgency = "critical"
)

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusPending:   {CaseStatusOpen, CaseStatusCancelled},
	CaseStatusOpen:      {CaseStatusActive, CaseStatusCancelled},
	CaseStatusActive:    {CaseStatusOnHold, CaseStatusCompleted, CaseStatusOpen, CaseStatusCancelled},
	CaseStatusOnHold:    {CaseStatusActive, CaseStatusOpen, CaseStatusCancelled},
	CaseStatusCompleted: {CaseStatusClosed},
}

// Valid reports whether s is a known case status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusPending, CaseStatusOpen, CaseStatusActive, CaseStatusOnHold,
		CaseStatusCompleted, CaseStatusClosed, CaseStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s CaseStatus) Terminal() bool {
	return len(caseTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s CaseStatus) CanTransitionTo(next CaseStatus) bool {
	for _, allowed := range caseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether u is a known urgency.
func (u CaseUrgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

type Case struct {
	Base
	CaseNumber         string      `json:"caseNumber" gorm:"size:32;uniqueIndex;not null"`
	TenantID           string      `json:"tenantId" gorm:"type:varchar(36);not null;index"`
	Tenant             *User       `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	InspectorID        *string     `json:"inspectorId" gorm:"type:varchar(36);index"`
	Inspector          *User       `json:"inspector,omitempty" gorm:"foreignKey:InspectorID"`
	PropertyID         string      `json:"propertyId" gorm:"type:varchar(36);not null;index"`
	Property           *Property   `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Status             CaseStatus  `json:"status" gorm:"size:20;not null;default:'pending';index"`
	Urgency            CaseUrgency `json:"urgency" gorm:"size:20;not null;default:'medium'"`
	Description        string      `json:"description" gorm:"type:text"`
	CancellationReason *string     `json:"cancellationReason,omitempty" gorm:"type:text"`
	Damages            []Damage    `json:"damages,omitempty" gorm:"foreignKey:CaseID"`
	Report             *Report     `json:"report,omitempty" gorm:"foreignKey:CaseID"`
	CompletedAt        *time.Time  `json:"completedAt,omitempty"`
	ClosedAt           *time.Time  `json:"closedAt,omitempty"`
	CancelledAt        *time.Time  `json:"cancelledAt,omitempty"`
}

func (Case) TableName() string {
	return "cases"
}

// HasInspector reports whether id is the case's assigned inspector.
func (c Case) HasInspector(id string) bool {
	return c.InspectorID != nil && *c.InspectorID == id
}

type Property struct {
	Base
	Address      string `json:"address" gorm:"not null;index:idx_property_location"`
	PostalCode   string `json:"postalCode" gorm:"size:20;index:idx_property_location"`
	City         string `json:"city" gorm:"size:100;not null;index:idx_property_location"`
	Country      string `json:"country" gorm:"size:100;not null;default:'Norway'"`
	PropertyType string `json:"propertyType" gorm:"size:50"`
}

func (Property) TableName() string {
	return "properties"
}

type Damage struct {
	Base
	CaseID      string        `json:"caseId" gorm:"type:varchar(36);not null;index"`
	Location    string        `json:"location"`
	DamageType  string        `json:"damageType" gorm:"size:100"`
	Description string        `json:"description" gorm:"type:text"`
	DamageDate  *time.Time    `json:"damageDate,omitempty"`
	Photos      []DamagePhoto `json:"photos,omitempty" gorm:"foreignKey:DamageID"`
}

func (Damage) TableName() string {
	return "damages"
}

type DamagePhoto struct {
	Base
	DamageID string `json:"damageId" gorm:"type:varchar(36);not null;index"`
	URL      string `json:"url" gorm:"not null"`
}

func (DamagePhoto) TableName() string {
	return "damage_photos"
}
