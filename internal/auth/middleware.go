package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sweet-shop/internal/domain"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// TokenValidator turns a raw bearer token into the caller identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

// AuthMiddleware validates bearer tokens and stores the caller identity.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	identity, err := m.validator.ValidateToken(c.UserContext(), strings.TrimSpace(parts[1]))
	if err != nil {
		return err
	}

	c.Locals(principalKey, identity)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated identity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}
