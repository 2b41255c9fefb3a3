package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sweet-shop/internal/api/dto"
	"github.com/spec-kit/sweet-shop/internal/auth"
	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/service"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

// AuthHandler exposes registration, login and logout.
type AuthHandler struct {
	auth      *service.AuthService
	validator *Validator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, validator *Validator) *AuthHandler {
	return &AuthHandler{auth: authService, validator: validator}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authResponse(res))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.validator.bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authResponse(res))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func authResponse(res *domain.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{Token: res.Token, Role: string(res.Role), ExpiresAt: res.ExpiresAt}
}
