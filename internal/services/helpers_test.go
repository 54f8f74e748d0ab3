package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/auth"
	"github.com/utleieskade/backend/internal/config"
	"github.com/utleieskade/backend/internal/db"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/payments"
	"github.com/utleieskade/backend/internal/storage"
)

const testPassword = "hemmelig123"

type emittedEvent struct {
	UserID string
	Event  string
	Data   interface{}
}

// recordingEmitter captures socket events and fakes presence.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
	online map[string]bool
}

func (r *recordingEmitter) Emit(userID, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emittedEvent{UserID: userID, Event: event, Data: data})
}

func (r *recordingEmitter) Online(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

func (r *recordingEmitter) setOnline(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[userID] = true
}

func (r *recordingEmitter) count(userID, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.UserID == userID && e.Event == event {
			n++
		}
	}
	return n
}

type testEnv struct {
	svc     *Services
	db      *gorm.DB
	gateway *payments.OfflineGateway
	mailer  *email.OutboxMailer
	emitter *recordingEmitter
	tokens  *auth.TokenManager
}

// newTestEnv wires every service against a private in-memory SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(config.DatabaseConfig{
		Dialect: "sqlite",
		Name:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	database.MarkReady()
	require.NoError(t, db.AutoMigrate(database.DB))
	t.Cleanup(func() {
		if sqlDB, err := database.DB.DB(); err == nil {
			sqlDB.Close()
		}
	})

	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		db:      database.DB,
		gateway: payments.NewOfflineGateway(true),
		mailer:  email.NewOutboxMailer(),
		emitter: &recordingEmitter{online: map[string]bool{}},
		tokens:  auth.NewTokenManager("test-secret", time.Hour, 10*time.Minute),
	}
	env.svc = New(Deps{
		DB:      database.DB,
		Tokens:  env.tokens,
		Gateway: env.gateway,
		Mailer:  env.mailer,
		Store:   storage.NewFallbackStore(nil, local),
		Emitter: env.emitter,
		BaseURL: "http://localhost:8080",
	})
	return env
}

// addUser inserts an active account with testPassword.
func (e *testEnv) addUser(t *testing.T, role models.UserRole, addr string) Actor {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Email:      addr,
		Password:   string(hash),
		FirstName:  "Test",
		LastName:   string(role),
		Role:       role,
		Status:     models.UserStatusActive,
		IsVerified: true,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return Actor{ID: user.ID, Role: role}
}

func sampleCaseInput() CaseInput {
	return CaseInput{
		Property: PropertyInput{Address: "Storgata 1", PostalCode: "0155", City: "Oslo"},
		Damages: []DamageInput{{
			Location:    "Bad",
			DamageType:  "Vannskade",
			Description: "Lekkasje under vasken",
			PhotoURLs:   []string{"http://localhost:8080/files/2026/01/a.jpg"},
		}},
		Urgency:     models.UrgencyHigh,
		Description: "Vann på gulvet",
	}
}

// openCase creates a case for tenant and moves it to open.
func (e *testEnv) openCase(t *testing.T, tenant, admin Actor) *models.Case {
	t.Helper()
	ctx := context.Background()
	c, err := e.svc.Cases.Create(ctx, tenant, sampleCaseInput())
	require.NoError(t, err)
	c, err = e.svc.Cases.ChangeStatus(ctx, admin, c.ID, models.CaseStatusOpen)
	require.NoError(t, err)
	return c
}

// completedCase returns a case the inspector has claimed and completed.
func (e *testEnv) completedCase(t *testing.T, tenant, admin, inspector Actor) *models.Case {
	t.Helper()
	ctx := context.Background()
	c := e.openCase(t, tenant, admin)
	_, err := e.svc.Cases.Claim(ctx, inspector, c.ID)
	require.NoError(t, err)
	c, err = e.svc.Cases.Complete(ctx, inspector, c.ID)
	require.NoError(t, err)
	return c
}

func requireAppError(t *testing.T, err error, code int, field string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected an application error, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	if field != "" {
		require.Equal(t, field, appErr.Field)
	}
}
