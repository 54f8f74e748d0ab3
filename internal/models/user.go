package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleSubAdmin  UserRole = "sub_admin"
	RoleTenant    UserRole = "tenant"
	RoleLandlord  UserRole = "landlord"
	RoleInspector UserRole = "inspector"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSubAdmin, RoleTenant, RoleLandlord, RoleInspector:
		return true
	}
	return false
}

// IsStaff reports whether r may act on the admin surface.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// PasswordResetRequired is stored instead of a hash for invited accounts
// until the owner sets a password.
const PasswordResetRequired = "RESET_REQUIRED"

type User struct {
	Base
	Email       string         `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password    string         `json:"-" gorm:"not null"`
	FirstName   string         `json:"firstName" gorm:"size:100;not null"`
	LastName    string         `json:"lastName" gorm:"size:100;not null"`
	Role        UserRole       `json:"role" gorm:"size:20;not null;index"`
	Status      UserStatus     `json:"status" gorm:"size:20;not null;default:'active'"`
	IsVerified  bool           `json:"isVerified" gorm:"not null;default:false"`
	Phone       *string        `json:"phone,omitempty" gorm:"size:40"`
	Address     *string        `json:"address,omitempty"`
	PostalCode  *string        `json:"postalCode,omitempty" gorm:"size:20"`
	City        *string        `json:"city,omitempty" gorm:"size:100"`
	Country     *string        `json:"country,omitempty" gorm:"size:100"`
	CompanyName *string        `json:"companyName,omitempty"`
	NationalID  *string        `json:"-" gorm:"size:40"`
	BankAccount *string        `json:"bankAccount,omitempty" gorm:"size:40"`
	Expertises  []Expertise    `json:"expertises,omitempty" gorm:"many2many:inspector_expertises"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsActive reports whether the account may log in.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Expertise is an area of inspection competence (water damage, mould, ...).
type Expertise struct {
	Base
	Name        string `json:"name" gorm:"size:100;uniqueIndex;not null"`
	Description string `json:"description"`
}

func (Expertise) TableName() string {
	return "expertises"
}

type OTPPurpose string

const (
	OTPPurposeStepUp      OTPPurpose = "step_up"
	OTPPurposeSetPassword OTPPurpose = "set_password"
)

// OTPCode is the database-backed store for one-time codes.
type OTPCode struct {
	Base
	UserID     string     `json:"userId" gorm:"type:varchar(36);not null;index"`
	Purpose    OTPPurpose `json:"purpose" gorm:"size:20;not null"`
	CodeHash   string     `json:"-" gorm:"not null"`
	Attempts   int        `json:"attempts" gorm:"not null;default:0"`
	ExpiresAt  time.Time  `json:"expiresAt" gorm:"not null"`
	ConsumedAt *time.Time `json:"consumedAt"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}
