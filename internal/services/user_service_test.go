package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utleieskade/backend/internal/models"
)

func registerInput(addr string) RegisterInput {
	return RegisterInput{
		Email:     addr,
		Password:  testPassword,
		FirstName: "Kari",
		LastName:  "Nordmann",
		Role:      models.RoleTenant,
	}
}

func TestRegister_NormalisesEmailAndIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Users.Register(ctx, registerInput("  Kari@Example.NO "))
	require.NoError(t, err)
	assert.Equal(t, "kari@example.no", res.User.Email)
	assert.Equal(t, models.UserStatusActive, res.User.Status)

	claims, err := env.tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleTenant, claims.Role)
}

func TestRegister_DuplicateEmailIsFieldConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Users.Register(ctx, registerInput("kari@example.no"))
	require.NoError(t, err)

	_, err = env.svc.Users.Register(ctx, registerInput("KARI@example.no"))
	requireAppError(t, err, http.StatusBadRequest, "email")
}

func TestRegister_RejectsPrivilegedRoles(t *testing.T) {
	env := newTestEnv(t)
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleSubAdmin, models.RoleInspector} {
		in := registerInput(string(role) + "@example.no")
		in.Role = role
		_, err := env.svc.Users.Register(context.Background(), in)
		requireAppError(t, err, http.StatusBadRequest, "role")
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	res, err := env.svc.Users.Login(ctx, "OLA@example.no", testPassword, false)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, res.User.ID)
	assert.NotNil(t, res.User.LastLoginAt)

	_, err = env.svc.Users.Login(ctx, "ola@example.no", "feil-passord", false)
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = env.svc.Users.Login(ctx, "ingen@example.no", testPassword, false)
	requireAppError(t, err, http.StatusUnauthorized, "")

	_, err = env.svc.Users.SetStatus(ctx, admin, tenant.ID, models.UserStatusInactive)
	require.NoError(t, err)
	_, err = env.svc.Users.Login(ctx, "ola@example.no", testPassword, false)
	requireAppError(t, err, http.StatusForbidden, "")
}

func TestLogin_RememberMeSelectsLifetime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, models.RoleTenant, "ola@example.no")
	env.tokens.WithSessionTTL(15 * time.Minute)

	session, err := env.svc.Users.Login(ctx, "ola@example.no", testPassword, false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), session.ExpiresAt, time.Minute)

	remembered, err := env.svc.Users.Login(ctx, "ola@example.no", testPassword, true)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), remembered.ExpiresAt, time.Minute)

	claims, err := env.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenant, claims.Role)
}

func TestInvitedInspectorMustSetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inspector, err := env.svc.Users.InviteInspector(ctx, InspectorInvite{
		Email:     "per@example.no",
		FirstName: "Per",
		LastName:  "Takst",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInspector, inspector.Role)

	msg, ok := env.mailer.Last("per@example.no")
	require.True(t, ok)
	assert.NotEmpty(t, msg.Subject)

	_, err = env.svc.Users.Login(ctx, "per@example.no", "", false)
	requireAppError(t, err, http.StatusForbidden, "")

	err = env.svc.Users.SetPassword(ctx, "per@example.no", "000000x", testPassword)
	requireAppError(t, err, http.StatusBadRequest, "code")

	// A fresh code replaces the emailed one.
	code, err := env.svc.OTP.Issue(ctx, inspector.ID, models.OTPPurposeSetPassword)
	require.NoError(t, err)
	require.NoError(t, env.svc.Users.SetPassword(ctx, "per@example.no", code, testPassword))

	res, err := env.svc.Users.Login(ctx, "per@example.no", testPassword, false)
	require.NoError(t, err)
	assert.True(t, res.User.IsVerified)

	err = env.svc.Users.SetPassword(ctx, "per@example.no", code, "nytt-passord")
	requireAppError(t, err, http.StatusBadRequest, "code")
}

func TestSetPassword_UnknownEmailLooksLikeBadCode(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Users.SetPassword(context.Background(), "ukjent@example.no", "123456", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")

	err := env.svc.Users.ChangePassword(ctx, tenant.ID, "feil", "nytt-passord")
	requireAppError(t, err, http.StatusBadRequest, "currentPassword")

	require.NoError(t, env.svc.Users.ChangePassword(ctx, tenant.ID, testPassword, "nytt-passord"))
	_, err = env.svc.Users.Login(ctx, "ola@example.no", "nytt-passord", false)
	require.NoError(t, err)
}

func TestUpdateProfile_InspectorOnlyFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")
	account := "1234.56.78901"
	city := "Bergen"

	user, err := env.svc.Users.UpdateProfile(ctx, tenant.ID, ProfileUpdate{City: &city, BankAccount: &account})
	require.NoError(t, err)
	require.NotNil(t, user.City)
	assert.Equal(t, "Bergen", *user.City)
	assert.Nil(t, user.BankAccount)

	user, err = env.svc.Users.UpdateProfile(ctx, inspector.ID, ProfileUpdate{BankAccount: &account})
	require.NoError(t, err)
	require.NotNil(t, user.BankAccount)
	assert.Equal(t, account, *user.BankAccount)
}

func TestLastAdminIsProtected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	sub := env.addUser(t, models.RoleSubAdmin, "sub@example.no")

	err := env.svc.Users.DeleteSelf(ctx, admin.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	_, err = env.svc.Users.SetStatus(ctx, admin, admin.ID, models.UserStatusInactive)
	requireAppError(t, err, http.StatusBadRequest, "")

	err = env.svc.Users.DeleteUser(ctx, admin, admin.ID)
	requireAppError(t, err, http.StatusBadRequest, "")

	second := env.addUser(t, models.RoleAdmin, "admin2@example.no")
	require.NoError(t, env.svc.Users.DeleteSelf(ctx, admin.ID))
	_, err = env.svc.Users.Get(ctx, admin.ID)
	requireAppError(t, err, http.StatusNotFound, "")

	require.NoError(t, env.svc.Users.DeleteUser(ctx, second, sub.ID))
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, models.RoleTenant, "ola@example.no")
	env.addUser(t, models.RoleTenant, "kari@example.no")
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	expertise, err := env.svc.Expertises.Create(ctx, "Vannskade", "")
	require.NoError(t, err)
	_, err = env.svc.Users.SetExpertises(ctx, inspector.ID, []string{expertise.ID})
	require.NoError(t, err)

	page, err := env.svc.Users.List(ctx, UserFilter{Role: models.RoleTenant}, NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = env.svc.Users.List(ctx, UserFilter{Search: "KARI"}, NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "kari@example.no", page.Items[0].Email)

	page, err = env.svc.Users.List(ctx, UserFilter{ExpertiseID: expertise.ID}, NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, inspector.ID, page.Items[0].ID)
	require.Len(t, page.Items[0].Expertises, 1)

	_, err = env.svc.Users.List(ctx, UserFilter{SortBy: "password"}, NewPagination(1, 10))
	requireAppError(t, err, http.StatusBadRequest, "sortBy")
}

func TestSetExpertises_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	inspector := env.addUser(t, models.RoleInspector, "per@example.no")

	_, err := env.svc.Users.SetExpertises(context.Background(), inspector.ID, []string{"missing"})
	requireAppError(t, err, http.StatusBadRequest, "expertiseIds")
}

func TestCreateStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Users.CreateStaff(ctx, StaffInput{
		Email: "sub@example.no", Password: testPassword, FirstName: "Sub", LastName: "Admin", Role: models.RoleSubAdmin,
	})
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	_, err = env.svc.Users.CreateStaff(ctx, StaffInput{
		Email: "x@example.no", Password: testPassword, FirstName: "X", LastName: "Y", Role: models.RoleTenant,
	})
	requireAppError(t, err, http.StatusBadRequest, "role")
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, models.RoleAdmin, "admin@example.no")
	tenant := env.addUser(t, models.RoleTenant, "ola@example.no")
	env.openCase(t, tenant, admin)

	stats, err := env.svc.Users.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.UsersByRole[string(models.RoleTenant)])
	assert.EqualValues(t, 1, stats.CasesByStatus[string(models.CaseStatusOpen)])
	assert.True(t, stats.TotalPayments.IsZero())
}
