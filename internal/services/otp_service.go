package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

const (
	otpValidity    = 10 * time.Minute
	otpMaxAttempts = 5
	otpDigits      = 6
)

// ErrInvalidCode is returned for wrong, expired, consumed or exhausted codes.
var ErrInvalidCode = apperrors.NewFieldError("code", "Invalid or expired code")

// OTPStore keeps hashed one-time codes.
type OTPStore interface {
	// Save replaces any outstanding code for the user and purpose.
	Save(ctx context.Context, userID string, purpose models.OTPPurpose, codeHash string, ttl time.Duration) error
	// Consume checks code and invalidates it on success. Wrong guesses count
	// towards the attempt limit.
	Consume(ctx context.Context, userID string, purpose models.OTPPurpose, code string) error
}

// DBOTPStore keeps codes in the otp_codes table.
type DBOTPStore struct {
	db *gorm.DB
}

func NewDBOTPStore(db *gorm.DB) *DBOTPStore {
	return &DBOTPStore{db: db}
}

func (s *DBOTPStore) Save(ctx context.Context, userID string, purpose models.OTPPurpose, codeHash string, ttl time.Duration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND purpose = ?", userID, purpose).Delete(&models.OTPCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.OTPCode{
			UserID:    userID,
			Purpose:   purpose,
			CodeHash:  codeHash,
			ExpiresAt: time.Now().Add(ttl),
		}).Error
	})
}

func (s *DBOTPStore) Consume(ctx context.Context, userID string, purpose models.OTPPurpose, code string) error {
	var otp models.OTPCode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL AND expires_at > ?", userID, purpose, time.Now()).
		Order("created_at DESC").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}
	if otp.Attempts >= otpMaxAttempts {
		return ErrInvalidCode
	}

	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		if err := s.db.WithContext(ctx).Model(&models.OTPCode{}).
			Where("id = ?", otp.ID).
			UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		return ErrInvalidCode
	}

	res := s.db.WithContext(ctx).Model(&models.OTPCode{}).
		Where("id = ? AND consumed_at IS NULL", otp.ID).
		Update("consumed_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidCode
	}
	return nil
}

// RedisOTPStore keeps codes in Redis hashes that expire with the code.
type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

const (
	otpFieldHash     = "hash"
	otpFieldAttempts = "attempts"
)

func (s *RedisOTPStore) key(userID string, purpose models.OTPPurpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, userID)
}

func (s *RedisOTPStore) Save(ctx context.Context, userID string, purpose models.OTPPurpose, codeHash string, ttl time.Duration) error {
	key := s.key(userID, purpose)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		otpFieldHash:     codeHash,
		otpFieldAttempts: 0,
	})
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (s *RedisOTPStore) Consume(ctx context.Context, userID string, purpose models.OTPPurpose, code string) error {
	key := s.key(userID, purpose)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to read otp: %w", err)
	}
	hash, ok := fields[otpFieldHash]
	if !ok {
		return ErrInvalidCode
	}
	attempts, _ := strconv.Atoi(fields[otpFieldAttempts])
	if attempts >= otpMaxAttempts {
		return ErrInvalidCode
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		n, err := s.client.HIncrBy(ctx, key, otpFieldAttempts, 1).Result()
		if err != nil {
			return fmt.Errorf("failed to count otp attempt: %w", err)
		}
		if n >= otpMaxAttempts {
			s.client.Del(ctx, key)
		}
		return ErrInvalidCode
	}

	// Del reports zero when a concurrent verify already consumed the code.
	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if deleted == 0 {
		return ErrInvalidCode
	}
	return nil
}

type OTPService struct {
	db      *gorm.DB
	store   OTPStore
	mailer  email.Mailer
	tokens  *auth.TokenManager
	baseURL string
}

func NewOTPService(db *gorm.DB, store OTPStore, mailer email.Mailer, tokens *auth.TokenManager, baseURL string) *OTPService {
	return &OTPService{db: db, store: store, mailer: mailer, tokens: tokens, baseURL: baseURL}
}

// Issue generates and stores a fresh code for the user.
func (ots *OTPService) Issue(ctx context.Context, userID string, purpose models.OTPPurpose) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", apperrors.NewInternalError("failed to generate code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.NewInternalError("failed to hash code", err)
	}
	if err := ots.store.Save(ctx, userID, purpose, string(hash), otpValidity); err != nil {
		return "", apperrors.NewInternalError("failed to store code", err)
	}
	return code, nil
}

// SendStepUp emails a step-up code to the authenticated user.
func (ots *OTPService) SendStepUp(ctx context.Context, userID string) error {
	var user models.User
	if err := ots.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return apperrors.FromGorm(err, "user")
	}
	code, err := ots.Issue(ctx, user.ID, models.OTPPurposeStepUp)
	if err != nil {
		return err
	}
	ots.deliver(email.OTPMessage(user.Email, user.FirstName, code, int(otpValidity.Minutes())))
	return nil
}

// SendSetPassword emails a set-password code. Invited inspectors get the
// invitation text.
func (ots *OTPService) SendSetPassword(ctx context.Context, user *models.User, invite bool) error {
	code, err := ots.Issue(ctx, user.ID, models.OTPPurposeSetPassword)
	if err != nil {
		return err
	}
	if invite {
		ots.deliver(email.InspectorInviteMessage(user.Email, user.FirstName, code, ots.baseURL, int(otpValidity.Minutes())))
	} else {
		ots.deliver(email.OTPMessage(user.Email, user.FirstName, code, int(otpValidity.Minutes())))
	}
	return nil
}

// VerifyStepUp consumes a step-up code and returns an elevated token.
func (ots *OTPService) VerifyStepUp(ctx context.Context, userID, code string) (string, time.Time, error) {
	if err := ots.Consume(ctx, userID, models.OTPPurposeStepUp, code); err != nil {
		return "", time.Time{}, err
	}
	var user models.User
	if err := ots.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return "", time.Time{}, apperrors.FromGorm(err, "user")
	}
	token, expiresAt, err := ots.tokens.IssueElevated(&user)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError("failed to issue token", err)
	}
	return token, expiresAt, nil
}

func (ots *OTPService) Consume(ctx context.Context, userID string, purpose models.OTPPurpose, code string) error {
	err := ots.store.Consume(ctx, userID, purpose, code)
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternalError("failed to verify code", err)
}

func (ots *OTPService) deliver(msg email.Message) {
	if err := ots.mailer.Send(msg); err != nil {
		logger.WithError(err, "otp_service").Error("Failed to send code email")
	}
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
