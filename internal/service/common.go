package service

import (
	"context"
	"errors"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/woreda-portal/compliance-service/internal/domain"
	"github.com/woreda-portal/compliance-service/internal/persistence"
	"github.com/woreda-portal/compliance-service/internal/repository"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

// storeCall runs fn through the retrier when one is configured.
func storeCall(ctx context.Context, retrier *persistence.Retrier, op string, fn func(ctx context.Context) error) error {
	if retrier == nil {
		return fn(ctx)
	}
	return retrier.Do(ctx, op, fn)
}

// mapRepoError translates repository failures into client-facing errors.
func mapRepoError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified by another request; reload and retry", details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	case errors.Is(err, persistence.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		persistence.IsTransient(err):
		return apperrors.NewPersistenceError(err)
	}
	return apperrors.NewInternalError(err)
}

// authorize checks that actor is an active user holding capability.
func authorize(actor *domain.User, capability domain.Capability) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsActive() {
		return apperrors.NewForbidden("account is not active")
	}
	if !actor.Can(capability) {
		return apperrors.NewForbidden("insufficient permissions")
	}
	return nil
}

// pageWindow clamps page/limit and returns the matching offset.
func pageWindow(page, limit, defaultLimit, maxLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = 1
	}
	// Offsets stay within int32 so (page-1)*limit cannot overflow.
	if lastPage := math.MaxInt32/limit + 1; page > lastPage {
		page = lastPage
	}
	return page, limit, (page - 1) * limit
}
