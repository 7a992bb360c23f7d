package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/woreda-portal/compliance-service/internal/auth"
	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

// AuthService authenticates staff users.
type AuthService struct {
	users    repository.UserRepository
	tokenMgr *auth.TokenManager
	retrier  *persistence.Retrier
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Retrier      *persistence.Retrier
	Logger       *zap.Logger
}

// LoginResult carries an issued session token.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokenMgr := deps.TokenManager
	if tokenMgr == nil {
		tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    deps.UserRepo,
		tokenMgr: tokenMgr,
		retrier:  deps.Retrier,
		logger:   logger,
	}
}

// Login authenticates an active staff user. Unknown email, wrong password
// and inactive accounts all yield the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	var user *domain.User
	err := storeCall(ctx, s.retrier, "users.get_by_email", func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invalidCredentials()
		}
		return nil, mapRepoError(err, "user", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, invalidCredentials()
	}
	if !user.IsActive() {
		s.logger.Info("login refused for inactive account", zap.String("user_id", user.ID))
		return nil, invalidCredentials()
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := storeCall(ctx, s.retrier, "users.touch_last_login", func(ctx context.Context) error {
		return s.users.TouchLastLogin(ctx, user.ID)
	}); err != nil {
		s.logger.Warn("unable to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

func invalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}
