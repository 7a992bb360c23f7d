package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/woreda-portal/compliance-service/internal/domain"
	apperrors "github.com/woreda-portal/compliance-service/pkg/util/errorutil"
)

// RequireCapability ensures the principal's role grants capability.
func RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !user.Can(capability) {
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures some staff user is loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
