package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/auth"
	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/repository"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

// AuthService coordinates registration, login and token validation.
type AuthService struct {
	users         repository.UserRepository
	revocations   auth.RevocationList
	tokenMgr      *auth.TokenManager
	logger        *zap.Logger
	bcryptCost    int
	verifySubject bool
	// dummyHash is compared against when the email is unknown so both
	// failure paths spend a bcrypt comparison.
	dummyHash string
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Revocations auth.RevocationList
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NewMemoryRevocationList()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dummy, err := auth.HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:         deps.UserRepo,
		revocations:   revocations,
		tokenMgr:      auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		logger:        logger,
		bcryptCost:    cfg.BcryptCost,
		verifySubject: cfg.VerifySubject,
		dummyHash:     dummy,
	}, nil
}

// TokenManager exposes the token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a USER account and issues its first token.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, email, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password produce the
// same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
		_ = auth.ComparePassword(s.dummyHash, password)
		return nil, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	return s.issue(user)
}

// ValidateToken checks signature, expiry and revocation. When subject
// verification is enabled the stored role replaces the token's role.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	identity, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}

	if identity.TokenID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if revoked {
			return nil, apperrors.NewUnauthorized("token has been revoked")
		}
	}

	if s.verifySubject {
		user, err := s.users.GetByID(ctx, identity.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewUnauthorized("account no longer exists")
			}
			return nil, apperrors.NewInternalError(err)
		}
		identity.Role = user.Role
	}
	return identity, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity) error {
	if identity == nil || identity.TokenID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("token revoked", zap.String("user_id", identity.UserID))
	return nil
}

// SeedAdmin creates the bootstrap ADMIN account. It reports false without
// touching anything when the email is already registered.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	if err := validateCredentials(email, password); err != nil {
		return false, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, apperrors.NewInternalError(err)
	}

	user, err := s.createUser(ctx, email, password, domain.RoleAdmin)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("admin account seeded", zap.String("user_id", user.ID))
	return true, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		s.logger.Error("create user failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.AuthResult{Token: token, Role: user.Role, ExpiresAt: exp}, nil
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperrors.NewValidationError(
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes),
			map[string]any{"field": "password"})
	}
	return nil
}
