package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/woreda-portal/compliance-service/internal/api/dto"
	"github.com/woreda-portal/compliance-service/internal/service"
)

// AuthHandler exposes the staff login endpoint.
type AuthHandler struct {
	auth       *service.AuthService
	cookieName string
	secure     bool
}

// NewAuthHandler constructs handler. When cookieName is set the token is
// also returned as an HTTP-only session cookie.
func NewAuthHandler(authService *service.AuthService, cookieName string, secure bool) *AuthHandler {
	return &AuthHandler{auth: authService, cookieName: cookieName, secure: secure}
}

// Login POST /auth/staff/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if h.cookieName != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookieName,
			Value:    result.Token,
			Expires:  result.ExpiresAt,
			HTTPOnly: true,
			Secure:   h.secure,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: result.Token,
		ExpiresAt:   result.ExpiresAt,
		User:        dto.NewUserResponse(result.User),
	}})
}
