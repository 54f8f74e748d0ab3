package services

import (
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/payments"
	"github.com/utleieskade/backend/internal/realtime"
	"github.com/utleieskade/backend/internal/storage"
)

// Deps are the infrastructure handles the services are built from.
type Deps struct {
	DB       *gorm.DB
	Tokens   *auth.TokenManager
	Gateway  payments.Gateway
	Mailer   email.Mailer
	Store    storage.Store
	Emitter  realtime.Emitter
	OTPStore OTPStore
	BaseURL  string
}

// Services is the full set of domain services.
type Services struct {
	Actions       *ActionLogService
	Settings      *SettingsService
	Notifications *NotificationService
	OTP           *OTPService
	Users         *UserService
	Expertises    *ExpertiseService
	Cases         *CaseService
	Reports       *ReportService
	Payments      *PaymentService
	Payouts       *PayoutService
	Refunds       *RefundService
	Chat          *ChatService
	Files         *FileService
}

func New(d Deps) *Services {
	if d.Emitter == nil {
		d.Emitter = realtime.NopEmitter{}
	}
	if d.Mailer == nil {
		d.Mailer = email.NewOutboxMailer()
	}
	if d.OTPStore == nil {
		d.OTPStore = NewDBOTPStore(d.DB)
	}

	actions := NewActionLogService(d.DB)
	settings := NewSettingsService(d.DB, actions)
	notifications := NewNotificationService(d.DB, d.Emitter)
	otp := NewOTPService(d.DB, d.OTPStore, d.Mailer, d.Tokens, d.BaseURL)
	users := NewUserService(d.DB, d.Tokens, otp, actions)
	cases := NewCaseService(d.DB, actions, notifications, d.Mailer)

	return &Services{
		Actions:       actions,
		Settings:      settings,
		Notifications: notifications,
		OTP:           otp,
		Users:         users,
		Expertises:    NewExpertiseService(d.DB),
		Cases:         cases,
		Reports:       NewReportService(d.DB, cases, actions, notifications),
		Payments:      NewPaymentService(d.DB, d.Gateway, settings, actions),
		Payouts:       NewPayoutService(d.DB, users, settings, actions, notifications, d.Mailer),
		Refunds:       NewRefundService(d.DB, d.Gateway, actions, notifications),
		Chat:          NewChatService(d.DB, d.Emitter, notifications),
		Files:         NewFileService(d.Store, d.BaseURL),
	}
}
