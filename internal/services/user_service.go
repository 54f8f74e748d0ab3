package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

type UserService struct {
	db      *gorm.DB
	tokens  *auth.TokenManager
	otp     *OTPService
	actions *ActionLogService
}

func NewUserService(db *gorm.DB, tokens *auth.TokenManager, otp *OTPService, actions *ActionLogService) *UserService {
	return &UserService{db: db, tokens: tokens, otp: otp, actions: actions}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type RegisterInput struct {
	Email       string          `json:"email" binding:"required,email"`
	Password    string          `json:"password" binding:"required,min=8"`
	FirstName   string          `json:"firstName" binding:"required"`
	LastName    string          `json:"lastName" binding:"required"`
	Role        models.UserRole `json:"role" binding:"required,selfrole"`
	Phone       *string         `json:"phone"`
	Address     *string         `json:"address"`
	PostalCode  *string         `json:"postalCode"`
	City        *string         `json:"city"`
	Country     *string         `json:"country"`
	CompanyName *string         `json:"companyName"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternalError("failed to hash password", err)
	}
	return string(hash), nil
}

// checkPassword compares against the stored hash. The reset sentinel never matches.
func checkPassword(user *models.User, password string) bool {
	if user.Password == models.PasswordResetRequired {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// createUser inserts user, mapping a duplicate email to a field conflict.
func (us *UserService) createUser(tx *gorm.DB, user *models.User) error {
	err := tx.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.NewConflictError("email", "Email is already registered")
	}
	return apperrors.FromGorm(err, "user")
}

// Register creates a tenant or landlord account and logs it in.
func (us *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if !in.Role.Valid() || in.Role.IsStaff() || in.Role == models.RoleInspector {
		return nil, apperrors.NewFieldError("role", "Role must be tenant or landlord")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:       normalizeEmail(in.Email),
		Password:    hash,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Role:        in.Role,
		Status:      models.UserStatusActive,
		Phone:       in.Phone,
		Address:     in.Address,
		PostalCode:  in.PostalCode,
		City:        in.City,
		Country:     in.Country,
		CompanyName: in.CompanyName,
	}
	if err := us.createUser(us.db.WithContext(ctx), &user); err != nil {
		return nil, err
	}

	logger.WithUser(user.ID).WithField("role", user.Role).Info("User registered")
	return us.issue(&user)
}

func (us *UserService) issue(user *models.User) (*AuthResult, error) {
	return us.sign(user, us.tokens.Issue)
}

func (us *UserService) sign(user *models.User, issue func(*models.User) (string, time.Time, error)) (*AuthResult, error) {
	token, expiresAt, err := issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Login verifies credentials. rememberMe selects the long-lived token.
func (us *UserService) Login(ctx context.Context, email, password string, rememberMe bool) (*AuthResult, error) {
	var user models.User
	err := us.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return nil, apperrors.FromGorm(err, "user")
	}

	if user.Password == models.PasswordResetRequired {
		return nil, apperrors.NewForbiddenError("Password reset required")
	}
	if !checkPassword(&user, password) {
		return nil, apperrors.NewUnauthorizedError("Invalid email or password")
	}
	if !user.IsActive() {
		return nil, apperrors.NewForbiddenError("Account is deactivated")
	}

	now := time.Now()
	if err := us.db.WithContext(ctx).Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logger.WithError(err, "user_service").Warn("Failed to record last login")
	}
	user.LastLoginAt = &now

	if rememberMe {
		return us.issue(&user)
	}
	return us.sign(&user, us.tokens.IssueSession)
}

// SetPassword replaces the password using a set-password code.
func (us *UserService) SetPassword(ctx context.Context, email, code, password string) error {
	var user models.User
	err := us.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return apperrors.FromGorm(err, "user")
	}

	if err := us.otp.Consume(ctx, user.ID, models.OTPPurposeSetPassword, code); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	err = us.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"password":    hash,
		"is_verified": true,
	}).Error
	return apperrors.FromGorm(err, "user")
}

// ForgotPassword emails a set-password code when the account exists.
// Unknown addresses are not reported.
func (us *UserService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	err := us.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.FromGorm(err, "user")
	}
	return us.otp.SendSetPassword(ctx, &user, false)
}

func (us *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := us.db.WithContext(ctx).Preload("Expertises").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "user")
	}
	return &user, nil
}

// GetWithRole loads a user and requires it to have role.
func (us *UserService) GetWithRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	user, err := us.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, apperrors.NewNotFoundError(string(role) + " not found")
	}
	return user, nil
}

type ProfileUpdate struct {
	FirstName   *string `json:"firstName" binding:"omitempty,min=1"`
	LastName    *string `json:"lastName" binding:"omitempty,min=1"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	PostalCode  *string `json:"postalCode"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
	CompanyName *string `json:"companyName"`
	BankAccount *string `json:"bankAccount"`
	NationalID  *string `json:"nationalId"`
}

func (us *UserService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*models.User, error) {
	user, err := us.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*upd.LastName)
	}
	if upd.Phone != nil {
		updates["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		updates["address"] = *upd.Address
	}
	if upd.PostalCode != nil {
		updates["postal_code"] = *upd.PostalCode
	}
	if upd.City != nil {
		updates["city"] = *upd.City
	}
	if upd.Country != nil {
		updates["country"] = *upd.Country
	}
	if upd.CompanyName != nil {
		updates["company_name"] = *upd.CompanyName
	}
	if user.Role == models.RoleInspector {
		if upd.BankAccount != nil {
			updates["bank_account"] = *upd.BankAccount
		}
		if upd.NationalID != nil {
			updates["national_id"] = *upd.NationalID
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := us.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.FromGorm(err, "user")
	}
	return us.Get(ctx, id)
}

func (us *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := us.Get(ctx, id)
	if err != nil {
		return err
	}
	if !checkPassword(user, current) {
		return apperrors.NewFieldError("currentPassword", "Current password is incorrect")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return apperrors.FromGorm(us.db.WithContext(ctx).Model(user).Update("password", hash).Error, "user")
}

// VerifyPassword checks a password for an already-authenticated user.
func (us *UserService) VerifyPassword(ctx context.Context, id, password string) error {
	user, err := us.Get(ctx, id)
	if err != nil {
		return err
	}
	if !checkPassword(user, password) {
		return apperrors.NewUnauthorizedError("Incorrect password")
	}
	return nil
}

// DeleteSelf soft-deletes the caller's own account.
func (us *UserService) DeleteSelf(ctx context.Context, id string) error {
	user, err := us.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		if err := us.ensureAnotherAdmin(ctx, user.ID); err != nil {
			return err
		}
	}
	if err := us.db.WithContext(ctx).Delete(user).Error; err != nil {
		return apperrors.FromGorm(err, "user")
	}
	logger.WithUser(id).Info("User deleted own account")
	return nil
}

func (us *UserService) ensureAnotherAdmin(ctx context.Context, exceptID string) error {
	var admins int64
	err := us.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND status = ? AND id <> ?", models.RoleAdmin, models.UserStatusActive, exceptID).
		Count(&admins).Error
	if err != nil {
		return apperrors.FromGorm(err, "users")
	}
	if admins == 0 {
		return apperrors.NewValidationError("Cannot remove the last administrator")
	}
	return nil
}

type UserFilter struct {
	Role        models.UserRole
	Status      models.UserStatus
	Search      string
	ExpertiseID string
	SortBy      string
	Order       string
}

var userSort = SortSpec{
	Allowed: map[string]string{
		"createdAt": "created_at",
		"firstName": "first_name",
		"lastName":  "last_name",
		"email":     "email",
		"status":    "status",
	},
	Default: "createdAt",
}

func (us *UserService) List(ctx context.Context, f UserFilter, p Pagination) (*Page[models.User], error) {
	order, err := userSort.Clause(f.SortBy, f.Order)
	if err != nil {
		return nil, err
	}

	query := us.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		query = query.Where("role = ?", f.Role)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}
	if f.ExpertiseID != "" {
		query = query.Where("id IN (?)", us.db.Table("inspector_expertises").
			Select("user_id").Where("expertise_id = ?", f.ExpertiseID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "users")
	}
	var users []models.User
	if err := query.Preload("Expertises").Order(order).Offset(p.Offset()).Limit(p.Limit).Find(&users).Error; err != nil {
		return nil, apperrors.FromGorm(err, "users")
	}
	return &Page[models.User]{Items: users, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

// AllWithRole returns every user of role, for exports.
func (us *UserService) AllWithRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var users []models.User
	err := us.db.WithContext(ctx).Preload("Expertises").Where("role = ?", role).Order("last_name ASC, first_name ASC").Find(&users).Error
	return users, apperrors.FromGorm(err, "users")
}

// SetStatus activates or deactivates an account.
func (us *UserService) SetStatus(ctx context.Context, admin Actor, id string, status models.UserStatus) (*models.User, error) {
	if status != models.UserStatusActive && status != models.UserStatusInactive {
		return nil, apperrors.NewFieldError("status", "Status must be active or inactive")
	}
	if id == admin.ID && status == models.UserStatusInactive {
		return nil, apperrors.NewValidationError("You cannot deactivate your own account")
	}
	user, err := us.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin && status == models.UserStatusInactive {
		if err := us.ensureAnotherAdmin(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	if err := us.db.WithContext(ctx).Model(user).Update("status", status).Error; err != nil {
		return nil, apperrors.FromGorm(err, "user")
	}
	user.Status = status

	action := models.ActionUserActivated
	if status == models.UserStatusInactive {
		action = models.ActionUserDeactivated
	}
	us.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  action,
		Description: "User " + user.Email + " set to " + string(status),
		Metadata:    map[string]string{"userId": user.ID},
	})
	return user, nil
}

// DeleteUser removes an account permanently.
func (us *UserService) DeleteUser(ctx context.Context, admin Actor, id string) error {
	if id == admin.ID {
		return apperrors.NewValidationError("You cannot delete your own account")
	}
	var user models.User
	if err := us.db.WithContext(ctx).Unscoped().First(&user, "id = ?", id).Error; err != nil {
		return apperrors.FromGorm(err, "user")
	}
	if user.Role == models.RoleAdmin {
		if err := us.ensureAnotherAdmin(ctx, user.ID); err != nil {
			return err
		}
	}

	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Association("Expertises").Clear(); err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperrors.NewValidationError("User has cases or payments and cannot be deleted; deactivate the account instead")
	}
	if err != nil {
		return apperrors.FromGorm(err, "user")
	}

	us.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  models.ActionUserDeleted,
		Description: "User " + user.Email + " deleted",
		Metadata:    map[string]string{"userId": user.ID, "role": string(user.Role)},
	})
	return nil
}

type StaffInput struct {
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required,min=8"`
	FirstName string          `json:"firstName" binding:"required"`
	LastName  string          `json:"lastName" binding:"required"`
	Role      models.UserRole `json:"role" binding:"required,staffrole"`
	Phone     *string         `json:"phone"`
}

// CreateStaff creates an admin or sub-admin account.
func (us *UserService) CreateStaff(ctx context.Context, in StaffInput) (*models.User, error) {
	if !in.Role.IsStaff() {
		return nil, apperrors.NewFieldError("role", "Role must be admin or sub_admin")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:      normalizeEmail(in.Email),
		Password:   hash,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       in.Role,
		Status:     models.UserStatusActive,
		IsVerified: true,
		Phone:      in.Phone,
	}
	if err := us.createUser(us.db.WithContext(ctx), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type InspectorInvite struct {
	Email        string   `json:"email" binding:"required,email"`
	FirstName    string   `json:"firstName" binding:"required"`
	LastName     string   `json:"lastName" binding:"required"`
	Phone        *string  `json:"phone"`
	City         *string  `json:"city"`
	NationalID   *string  `json:"nationalId"`
	BankAccount  *string  `json:"bankAccount"`
	ExpertiseIDs []string `json:"expertiseIds"`
}

// InviteInspector creates an inspector that must set a password before logging in.
func (us *UserService) InviteInspector(ctx context.Context, in InspectorInvite) (*models.User, error) {
	user := models.User{
		Email:       normalizeEmail(in.Email),
		Password:    models.PasswordResetRequired,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Role:        models.RoleInspector,
		Status:      models.UserStatusActive,
		Phone:       in.Phone,
		City:        in.City,
		NationalID:  in.NationalID,
		BankAccount: in.BankAccount,
	}

	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.createUser(tx, &user); err != nil {
			return err
		}
		return replaceExpertises(tx, &user, in.ExpertiseIDs)
	})
	if err != nil {
		return nil, err
	}

	if err := us.otp.SendSetPassword(ctx, &user, true); err != nil {
		logger.WithError(err, "user_service").Error("Failed to issue inspector invitation code")
	}
	return &user, nil
}

// SetExpertises replaces an inspector's expertise list.
func (us *UserService) SetExpertises(ctx context.Context, inspectorID string, ids []string) (*models.User, error) {
	user, err := us.GetWithRole(ctx, inspectorID, models.RoleInspector)
	if err != nil {
		return nil, err
	}
	if err := replaceExpertises(us.db.WithContext(ctx), user, ids); err != nil {
		return nil, err
	}
	return us.Get(ctx, inspectorID)
}

func replaceExpertises(tx *gorm.DB, user *models.User, ids []string) error {
	var expertises []models.Expertise
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&expertises).Error; err != nil {
			return apperrors.FromGorm(err, "expertises")
		}
		if len(expertises) != len(uniqueStrings(ids)) {
			return apperrors.NewFieldError("expertiseIds", "Unknown expertise")
		}
	}
	if err := tx.Model(user).Association("Expertises").Replace(expertises); err != nil {
		return apperrors.FromGorm(err, "expertises")
	}
	user.Expertises = expertises
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	UsersByRole    map[string]int64 `json:"usersByRole"`
	CasesByStatus  map[string]int64 `json:"casesByStatus"`
	TotalPayments  decimal.Decimal  `json:"totalPayments"`
	TotalRefunded  decimal.Decimal  `json:"totalRefunded"`
	PendingPayouts int64            `json:"pendingPayouts"`
	PendingRefunds int64            `json:"pendingRefunds"`
}

type groupCount struct {
	GroupKey string
	Count    int64
}

func (us *UserService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	gdb := us.db.WithContext(ctx)
	stats := &DashboardStats{
		UsersByRole:   map[string]int64{},
		CasesByStatus: map[string]int64{},
	}

	var rows []groupCount
	if err := gdb.Model(&models.User{}).Select("role AS group_key, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		return nil, apperrors.FromGorm(err, "users")
	}
	for _, r := range rows {
		stats.UsersByRole[r.GroupKey] = r.Count
	}

	rows = nil
	if err := gdb.Model(&models.Case{}).Select("status AS group_key, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperrors.FromGorm(err, "cases")
	}
	for _, r := range rows {
		stats.CasesByStatus[r.GroupKey] = r.Count
	}

	if err := gdb.Model(&models.Payment{}).
		Where("status IN ?", []models.PaymentStatus{models.PaymentStatusProcessed, models.PaymentStatusRefunded}).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalPayments).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payments")
	}
	if err := gdb.Model(&models.Refund{}).Where("status = ?", models.RefundStatusApproved).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.TotalRefunded).Error; err != nil {
		return nil, apperrors.FromGorm(err, "refunds")
	}
	if err := gdb.Model(&models.InspectorPayment{}).
		Where("status IN ?", []models.PayoutStatus{models.PayoutStatusRequested, models.PayoutStatusPending}).
		Count(&stats.PendingPayouts).Error; err != nil {
		return nil, apperrors.FromGorm(err, "payouts")
	}
	if err := gdb.Model(&models.Refund{}).Where("status = ?", models.RefundStatusPending).
		Count(&stats.PendingRefunds).Error; err != nil {
		return nil, apperrors.FromGorm(err, "refunds")
	}
	return stats, nil
}
