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

func TestLogin(t *testing.T) {
	store := repotest.NewStore(fixtureStart)
	tokens := auth.NewTokenManager("secret", 10)
	svc := NewAuthService(config.Config{}, AuthDependencies{UserRepo: store.Users(), TokenManager: tokens})
	ctx := context.Background()

	hash, err := auth.HashPassword("correct horse battery", 4)
	require.NoError(t, err)
	active := &domain.User{Email: "staff@example.gov", Name: "Staff", PasswordHash: hash, Role: domain.UserRoleStaff, Status: domain.UserStatusActive}
	require.NoError(t, store.Users().Create(ctx, active))
	pending := &domain.User{Email: "new@example.gov", Name: "New", PasswordHash: hash, Role: domain.UserRoleStaff, Status: domain.UserStatusPending}
	require.NoError(t, store.Users().Create(ctx, pending))

	result, err := svc.Login(ctx, "Staff@Example.gov", "correct horse battery")
	require.NoError(t, err)
	claims, err := tokens.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, active.ID, claims.UserID)

	stored, err := store.Users().GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	for name, creds := range map[string][2]string{
		"wrong password": {"staff@example.gov", "nope nope nope"},
		"unknown email":  {"ghost@example.gov", "correct horse battery"},
		"inactive":       {"new@example.gov", "correct horse battery"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(ctx, creds[0], creds[1])
			assertCode(t, err, apperrors.CodeUnauthorized)
			assert.Equal(t, "invalid credentials", err.(*apperrors.DomainError).Message)
		})
	}

	_, err = svc.Login(ctx, "", "")
	assertCode(t, err, apperrors.CodeValidation)
}
