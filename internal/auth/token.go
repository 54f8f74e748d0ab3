// Package auth issues and verifies signed bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utleieskade/backend/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by a token.
type Claims struct {
	UserID   string          `json:"userId"`
	Role     models.UserRole `json:"role"`
	Elevated bool            `json:"elevated,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret      []byte
	ttl         time.Duration
	sessionTTL  time.Duration
	elevatedTTL time.Duration
	now         func() time.Time
}

// NewTokenManager signs persistent tokens valid for ttl. Session tokens use
// ttl as well until WithSessionTTL sets a shorter lifetime.
func NewTokenManager(secret string, ttl, elevatedTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		sessionTTL:  ttl,
		elevatedTTL: elevatedTTL,
		now:         time.Now,
	}
}

// WithSessionTTL sets the lifetime of logins without "remember me".
func (m *TokenManager) WithSessionTTL(ttl time.Duration) *TokenManager {
	if ttl > 0 {
		m.sessionTTL = ttl
	}
	return m
}

// Issue signs a persistent token for user.
func (m *TokenManager) Issue(user *models.User) (string, time.Time, error) {
	return m.issue(user, false, m.ttl)
}

// IssueSession signs a token for a login that did not ask to be remembered.
func (m *TokenManager) IssueSession(user *models.User) (string, time.Time, error) {
	return m.issue(user, false, m.sessionTTL)
}

// IssueElevated signs a short-lived token after OTP verification.
func (m *TokenManager) IssueElevated(user *models.User) (string, time.Time, error) {
	return m.issue(user, true, m.elevatedTTL)
}

func (m *TokenManager) issue(user *models.User, elevated bool, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID:   user.ID,
		Role:     user.Role,
		Elevated: elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates the signature and expiry of tokenString.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
