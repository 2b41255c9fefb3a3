package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/sweet-shop/internal/auth"
	"github.com/spec-kit/sweet-shop/internal/config"
	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/repository"
	"github.com/spec-kit/sweet-shop/internal/repository/memory"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}
}

func newAuthService(t *testing.T, cfg config.AuthConfig) (*AuthService, repository.UserRepository) {
	t.Helper()
	users := memory.NewUserRepository()
	svc, err := NewAuthService(cfg, AuthDependencies{UserRepo: users})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc, users
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	reg, err := svc.Register(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Role != domain.RoleUser || reg.Token == "" {
		t.Fatalf("unexpected register result %+v", reg)
	}

	login, err := svc.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	identity, err := svc.TokenManager().ParseToken(login.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.Role != domain.RoleUser {
		t.Fatalf("expected USER role, got %s", identity.Role)
	}

	regIdentity, _ := svc.TokenManager().ParseToken(reg.Token)
	if regIdentity.UserID != identity.UserID {
		t.Fatalf("tokens carry different ids: %s vs %s", regIdentity.UserID, identity.UserID)
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "bob@example.com", "first"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "bob@example.com", "second")
	assertCode(t, err, apperrors.CodeDuplicateEmail)

	// The original password still works.
	if _, err := svc.Login(ctx, "bob@example.com", "first"); err != nil {
		t.Fatalf("login with original password: %v", err)
	}
}

func TestAuthService_StoresBcryptHash(t *testing.T) {
	svc, users := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol@example.com", "plain-text"); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := users.GetByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.PasswordHash == "plain-text" {
		t.Fatalf("password stored in plaintext")
	}
	if err := auth.ComparePassword(user.PasswordHash, "plain-text"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()
	if _, err := svc.Register(ctx, "dave@example.com", "right"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@example.com", "right")
	_, wrongErr := svc.Login(ctx, "dave@example.com", "wrong")
	assertCode(t, unknownErr, apperrors.CodeInvalidCredentials)
	assertCode(t, wrongErr, apperrors.CodeInvalidCredentials)
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	cases := map[string][2]string{
		"empty email":       {"", "pw"},
		"blank email":       {"   ", "pw"},
		"empty password":    {"eve@example.com", ""},
		"password too long": {"long@example.com", strings.Repeat("p", 80)},
	}
	for name, tc := range cases {
		_, err := svc.Register(context.Background(), tc[0], tc[1])
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestAuthService_RegisterAcceptsAnyNonEmptyEmail(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	res, err := svc.Register(ctx, "bob", "pw123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Role != domain.RoleUser {
		t.Fatalf("unexpected role %s", res.Role)
	}
	if _, err := svc.Login(ctx, "bob", "pw123"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestAuthService_RegisterPasswordLengthBoundary(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "edge@example.com", strings.Repeat("p", auth.MaxPasswordBytes)); err != nil {
		t.Fatalf("register at limit: %v", err)
	}
	_, err := svc.Register(ctx, "over@example.com", strings.Repeat("p", auth.MaxPasswordBytes+1))
	assertCode(t, err, apperrors.CodeValidation)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	svc, _ := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	res, err := svc.Register(ctx, "frank@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	identity, err := svc.ValidateToken(ctx, res.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := svc.Logout(ctx, identity); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = svc.ValidateToken(ctx, res.Token)
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestAuthService_VerifySubjectUsesStoredRole(t *testing.T) {
	cfg := testAuthConfig()
	cfg.VerifySubject = true
	svc, users := newAuthService(t, cfg)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "gina@example.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	user, _ := users.GetByEmail(ctx, "gina@example.com")

	forged, _, err := svc.TokenManager().GenerateToken(user.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	identity, err := svc.ValidateToken(ctx, forged)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.Role != domain.RoleUser {
		t.Fatalf("expected stored USER role, got %s", identity.Role)
	}

	orphan, _, _ := svc.TokenManager().GenerateToken("00000000-0000-0000-0000-000000000000", domain.RoleUser)
	_, err = svc.ValidateToken(ctx, orphan)
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestAuthService_SeedAdminIsIdempotent(t *testing.T) {
	svc, users := newAuthService(t, testAuthConfig())
	ctx := context.Background()

	created, err := svc.SeedAdmin(ctx, "admin@example.com", "admin123")
	if err != nil || !created {
		t.Fatalf("first seed: created=%v err=%v", created, err)
	}
	created, err = svc.SeedAdmin(ctx, "admin@example.com", "other")
	if err != nil || created {
		t.Fatalf("second seed: created=%v err=%v", created, err)
	}

	admin, _ := users.GetByEmail(ctx, "admin@example.com")
	if admin.Role != domain.RoleAdmin {
		t.Fatalf("seeded role %s", admin.Role)
	}
	res, err := svc.Login(ctx, "admin@example.com", "admin123")
	if err != nil || res.Role != domain.RoleAdmin {
		t.Fatalf("admin login: %+v %v", res, err)
	}
}
