package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woreda-portal/compliance-service/internal/auth"
	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/repository/repotest"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

func newUserService(t *testing.T) (*UserService, *repotest.Store, *domain.User) {
	t.Helper()
	store := repotest.NewStore(fixtureStart)
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: 4}, Reports: config.DefaultReportsConfig()}
	svc := NewUserService(cfg, UserDependencies{UserRepo: store.Users()})
	admin := seedUser(t, store, "root@example.gov", domain.UserRoleAdmin, domain.UserStatusActive)
	return svc, store, admin
}

func TestCreateUser(t *testing.T) {
	svc, _, admin := newUserService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, admin, CreateUserInput{
		Email:    " Clerk@Example.gov ",
		Name:     "Records Clerk",
		Role:     "staff",
		Password: "long enough secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "clerk@example.gov", user.Email)
	assert.Equal(t, domain.UserRoleStaff, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "long enough secret"))

	_, err = svc.CreateUser(ctx, admin, CreateUserInput{
		Email: "clerk@example.gov", Name: "Dup", Role: "STAFF", Password: "long enough secret",
	})
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, store, admin := newUserService(t)
	_, err := svc.CreateUser(context.Background(), admin, CreateUserInput{
		Email: "not an email", Role: "superuser", Password: "short",
	})
	assertCode(t, err, apperrors.CodeValidation)
	details := err.(*apperrors.DomainError).Details
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "role")
	assert.Contains(t, details, "password")
	assert.Equal(t, 1, store.Calls("users.Create"))
}

func TestCreateUser_RequiresAdmin(t *testing.T) {
	svc, store, _ := newUserService(t)
	staff := seedUser(t, store, "staff@example.gov", domain.UserRoleStaff, domain.UserStatusActive)

	_, err := svc.CreateUser(context.Background(), staff, CreateUserInput{
		Email: "x@example.gov", Name: "X", Role: "STAFF", Password: "long enough secret",
	})
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestBootstrapUser(t *testing.T) {
	svc, _, _ := newUserService(t)
	user, err := svc.BootstrapUser(context.Background(), CreateUserInput{
		Email: "first@example.gov", Name: "First Admin", Role: "ADMIN", Password: "long enough secret",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleAdmin, user.Role)
}

func TestUpdateUserRoleAndStatus(t *testing.T) {
	svc, store, admin := newUserService(t)
	ctx := context.Background()
	target := seedUser(t, store, "mod@example.gov", domain.UserRoleModerator, domain.UserStatusPending)

	updated, err := svc.UpdateUserRole(ctx, admin, target.ID, "staff")
	require.NoError(t, err)
	assert.Equal(t, domain.UserRoleStaff, updated.Role)

	updated, err = svc.UpdateUserStatus(ctx, admin, target.ID, "active")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, updated.Status)

	_, err = svc.UpdateUserStatus(ctx, admin, admin.ID, "SUSPENDED")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = svc.UpdateUserRole(ctx, admin, admin.ID, "STAFF")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = svc.UpdateUserRole(ctx, admin, target.ID, "owner")
	assertCode(t, err, apperrors.CodeValidation)
	_, err = svc.GetUser(ctx, admin, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = svc.GetUser(ctx, admin, "00000000-0000-0000-0000-0000000000ff")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestListUsers(t *testing.T) {
	svc, store, admin := newUserService(t)
	ctx := context.Background()
	seedUser(t, store, "a@example.gov", domain.UserRoleStaff, domain.UserStatusActive)
	seedUser(t, store, "b@example.gov", domain.UserRoleStaff, domain.UserStatusSuspended)
	seedUser(t, store, "c@example.gov", domain.UserRoleModerator, domain.UserStatusActive)

	page, err := svc.ListUsers(ctx, admin, UserQuery{Role: "staff"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = svc.ListUsers(ctx, admin, UserQuery{Status: "active", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "c@example.gov", page.Items[0].Email)

	page, err = svc.ListUsers(ctx, admin, UserQuery{Search: "B@EX"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	_, err = svc.ListUsers(ctx, admin, UserQuery{Role: "guest"})
	assertCode(t, err, apperrors.CodeValidation)
}
