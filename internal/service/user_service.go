package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/woreda-portal/compliance-service/internal/auth"
	"github.com/woreda-portal/compliance-service/internal/config"
	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

// UserService manages staff accounts.
type UserService struct {
	users      repository.UserRepository
	retrier    *persistence.Retrier
	bcryptCost int
	pageCfg    config.ReportsConfig
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo repository.UserRepository
	Retrier  *persistence.Retrier
	Logger   *zap.Logger
}

// CreateUserInput describes a new staff account.
type CreateUserInput struct {
	Email    string
	Name     string
	Role     string
	Status   string
	Password string
}

// UserQuery describes a staff listing request.
type UserQuery struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageCfg := cfg.Reports
	if pageCfg.DefaultPageSize <= 0 || pageCfg.MaxPageSize <= 0 {
		pageCfg = config.DefaultReportsConfig()
	}
	return &UserService{
		users:      deps.UserRepo,
		retrier:    deps.Retrier,
		bcryptCost: cfg.Auth.BcryptCost,
		pageCfg:    pageCfg,
		logger:     logger,
	}
}

// CreateUser registers a staff account. Only admins may call it.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input CreateUserInput) (*domain.User, error) {
	if err := authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}

	details := map[string]any{}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "must be a valid address"
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "is required"
	}
	role, ok := domain.ParseUserRole(input.Role)
	if !ok {
		details["role"] = "must be one of ADMIN, STAFF, MODERATOR"
	}
	status := domain.UserStatusActive
	if strings.TrimSpace(input.Status) != "" {
		parsed, ok := domain.ParseUserStatus(input.Status)
		if !ok {
			details["status"] = "must be one of ACTIVE, PENDING, SUSPENDED"
		}
		status = parsed
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		details["password"] = "must be at least 10 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Email: email, Name: name, PasswordHash: hash, Role: role, Status: status}
	if err := storeCall(ctx, s.retrier, "users.create", func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	}); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, mapRepoError(err, "user", nil)
	}

	s.logger.Info("staff user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.ID))
	return user, nil
}

// BootstrapUser creates an account on behalf of operator tooling.
func (s *UserService) BootstrapUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	return s.CreateUser(ctx, domain.SystemActor(), input)
}

// ListUsers pages through staff accounts, newest first.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, query UserQuery) (*domain.Page[domain.User], error) {
	if err := authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}

	filter := repository.UserFilter{}
	if strings.TrimSpace(query.Role) != "" {
		role, ok := domain.ParseUserRole(query.Role)
		if !ok {
			return nil, apperrors.NewValidationError("invalid role filter", map[string]any{"role": query.Role})
		}
		filter.Role = &role
	}
	if strings.TrimSpace(query.Status) != "" {
		status, ok := domain.ParseUserStatus(query.Status)
		if !ok {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": query.Status})
		}
		filter.Status = &status
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.SearchText = &search
	}

	page, limit, offset := pageWindow(query.Page, query.Limit, s.pageCfg.DefaultPageSize, s.pageCfg.MaxPageSize)
	filter.Limit = limit
	filter.Offset = offset

	var (
		items []domain.User
		total int
	)
	if err := storeCall(ctx, s.retrier, "users.list", func(ctx context.Context) error {
		var err error
		items, total, err = s.users.List(ctx, filter)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "user", nil)
	}
	return domain.NewPage(items, total, page, limit), nil
}

// GetUser fetches one account.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	if err := authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	return s.loadUser(ctx, userID)
}

// UpdateUserRole changes another user's role.
func (s *UserService) UpdateUserRole(ctx context.Context, actor *domain.User, userID, rawRole string) (*domain.User, error) {
	if err := authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	role, ok := domain.ParseUserRole(rawRole)
	if !ok {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": rawRole})
	}
	if actor.ID == userID {
		return nil, apperrors.NewValidationError("administrators cannot change their own role", nil)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	return s.saveUser(ctx, actor, user)
}

// UpdateUserStatus activates or suspends another user.
func (s *UserService) UpdateUserStatus(ctx context.Context, actor *domain.User, userID, rawStatus string) (*domain.User, error) {
	if err := authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	status, ok := domain.ParseUserStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": rawStatus})
	}
	if actor.ID == userID {
		return nil, apperrors.NewValidationError("administrators cannot change their own status", nil)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return user, nil
	}
	user.Status = status
	return s.saveUser(ctx, actor, user)
}

func (s *UserService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	var user *domain.User
	if err := storeCall(ctx, s.retrier, "users.get", func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, userID)
		return err
	}); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

func (s *UserService) saveUser(ctx context.Context, actor *domain.User, user *domain.User) (*domain.User, error) {
	if err := storeCall(ctx, s.retrier, "users.update", func(ctx context.Context) error {
		return s.users.Update(ctx, user)
	}); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": user.ID})
	}
	s.logger.Info("staff user updated",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("status", string(user.Status)),
		zap.String("actor_id", actor.ID))
	return user, nil
}
